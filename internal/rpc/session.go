package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/failure"
)

type GetStatusRequest struct{}

// StatusResponse describes the daemon and who is signed in.
type StatusResponse struct {
	Session  string           `json:"session"`
	Status   string           `json:"status"`
	Driver   *domain.Identity `json:"driver,omitempty"`
	UptimeMs int64            `json:"uptime_ms"`
	BaseURL  string           `json:"base_url"`
	PID      int              `json:"pid"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Driver domain.Identity `json:"driver"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

// ListActivityRequest filters the journal. An empty OrderID lists every
// order.
type ListActivityRequest struct {
	OrderID domain.ID `json:"order_id,omitempty"`
	Limit   int       `json:"limit,omitempty"`
}

type ListActivityResponse struct {
	Entries []domain.Activity `json:"entries"`
}

type WatchAlertsRequest struct{}

const sessionService = "SessionService"

// SessionServer is implemented by the daemon.
type SessionServer interface {
	GetStatus(context.Context, *GetStatusRequest) (*StatusResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	ListActivity(context.Context, *ListActivityRequest) (*ListActivityResponse, error)
	WatchAlerts(*WatchAlertsRequest, grpc.ServerStreamingServer[failure.Alert]) error
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: packagePrefix + sessionService,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(sessionService, "GetStatus", SessionServer.GetStatus),
		unary(sessionService, "Login", SessionServer.Login),
		unary(sessionService, "Logout", SessionServer.Logout),
		unary(sessionService, "ListActivity", SessionServer.ListActivity),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchAlerts", SessionServer.WatchAlerts),
	},
}

func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

// SessionClient calls SessionServer.
type SessionClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionClient(cc grpc.ClientConnInterface) *SessionClient {
	return &SessionClient{cc: cc}
}

func (c *SessionClient) GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[GetStatusRequest, StatusResponse](ctx, c.cc, sessionService, "GetStatus", in, opts)
}

func (c *SessionClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginRequest, LoginResponse](ctx, c.cc, sessionService, "Login", in, opts)
}

func (c *SessionClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutRequest, LogoutResponse](ctx, c.cc, sessionService, "Logout", in, opts)
}

func (c *SessionClient) ListActivity(ctx context.Context, in *ListActivityRequest, opts ...grpc.CallOption) (*ListActivityResponse, error) {
	return invoke[ListActivityRequest, ListActivityResponse](ctx, c.cc, sessionService, "ListActivity", in, opts)
}

func (c *SessionClient) WatchAlerts(ctx context.Context, in *WatchAlertsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[failure.Alert], error) {
	return openStream[WatchAlertsRequest, failure.Alert](ctx, c.cc, &SessionServiceDesc, 0, in, opts)
}
