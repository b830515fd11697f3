package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/orders"
)

// ListOrdersRequest asks for the order view. Refresh fetches from the
// backend first.
type ListOrdersRequest struct {
	Refresh bool `json:"refresh,omitempty"`
}

// AdvanceOrderRequest requests the transition from FromStatus. FromStatus
// is the status the driver saw when acting.
type AdvanceOrderRequest struct {
	OrderID    domain.ID `json:"order_id"`
	FromStatus string    `json:"from_status"`
}

type AdvanceOrderResponse struct {
	Next string `json:"next,omitempty"`
}

type WatchOrdersRequest struct{}

// OrdersUpdate is one frame of the order watch stream.
type OrdersUpdate struct {
	View      orders.View `json:"view"`
	ScrollTop bool        `json:"scroll_top,omitempty"`
}

const orderService = "OrderService"

type OrderServer interface {
	ListOrders(context.Context, *ListOrdersRequest) (*orders.View, error)
	AdvanceOrder(context.Context, *AdvanceOrderRequest) (*AdvanceOrderResponse, error)
	WatchOrders(*WatchOrdersRequest, grpc.ServerStreamingServer[OrdersUpdate]) error
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: packagePrefix + orderService,
	HandlerType: (*OrderServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(orderService, "ListOrders", OrderServer.ListOrders),
		unary(orderService, "AdvanceOrder", OrderServer.AdvanceOrder),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchOrders", OrderServer.WatchOrders),
	},
}

func RegisterOrderServer(s grpc.ServiceRegistrar, srv OrderServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

type OrderClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderClient(cc grpc.ClientConnInterface) *OrderClient {
	return &OrderClient{cc: cc}
}

func (c *OrderClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*orders.View, error) {
	return invoke[ListOrdersRequest, orders.View](ctx, c.cc, orderService, "ListOrders", in, opts)
}

func (c *OrderClient) AdvanceOrder(ctx context.Context, in *AdvanceOrderRequest, opts ...grpc.CallOption) (*AdvanceOrderResponse, error) {
	return invoke[AdvanceOrderRequest, AdvanceOrderResponse](ctx, c.cc, orderService, "AdvanceOrder", in, opts)
}

// WatchOrders streams the order view. The orders view counts as visible
// while the stream is open.
func (c *OrderClient) WatchOrders(ctx context.Context, in *WatchOrdersRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[OrdersUpdate], error) {
	return openStream[WatchOrdersRequest, OrdersUpdate](ctx, c.cc, &OrderServiceDesc, 0, in, opts)
}
