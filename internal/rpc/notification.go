package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/matheus3301/drv/internal/notifications"
)

type ListNotificationsRequest struct {
	Refresh bool `json:"refresh,omitempty"`
}

type WatchNotificationsRequest struct{}

const notificationService = "NotificationService"

type NotificationServer interface {
	ListNotifications(context.Context, *ListNotificationsRequest) (*notifications.View, error)
	WatchNotifications(*WatchNotificationsRequest, grpc.ServerStreamingServer[notifications.View]) error
}

var NotificationServiceDesc = grpc.ServiceDesc{
	ServiceName: packagePrefix + notificationService,
	HandlerType: (*NotificationServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(notificationService, "ListNotifications", NotificationServer.ListNotifications),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchNotifications", NotificationServer.WatchNotifications),
	},
}

func RegisterNotificationServer(s grpc.ServiceRegistrar, srv NotificationServer) {
	s.RegisterService(&NotificationServiceDesc, srv)
}

type NotificationClient struct {
	cc grpc.ClientConnInterface
}

func NewNotificationClient(cc grpc.ClientConnInterface) *NotificationClient {
	return &NotificationClient{cc: cc}
}

func (c *NotificationClient) ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*notifications.View, error) {
	return invoke[ListNotificationsRequest, notifications.View](ctx, c.cc, notificationService, "ListNotifications", in, opts)
}

func (c *NotificationClient) WatchNotifications(ctx context.Context, in *WatchNotificationsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[notifications.View], error) {
	return openStream[WatchNotificationsRequest, notifications.View](ctx, c.cc, &NotificationServiceDesc, 0, in, opts)
}
