package api

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/lifecycle"
	"github.com/matheus3301/drv/internal/orders"
	"github.com/matheus3301/drv/internal/rpc"
)

// OrderService implements rpc.OrderServer.
type OrderService struct {
	engine   *orders.Engine
	watcher  Watcher
	identity Identity
	bus      *bus.Bus
	logger   *zap.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(e *orders.Engine, w Watcher, id Identity, b *bus.Bus, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{engine: e, watcher: w, identity: id, bus: b, logger: logger.Named("api")}
}

func (s *OrderService) ListOrders(ctx context.Context, req *rpc.ListOrdersRequest) (*orders.View, error) {
	if req.Refresh {
		if _, ok := s.identity.Current(); !ok {
			return nil, errSignedOut
		}
		if err := s.engine.Refresh(ctx); err != nil {
			return nil, toStatus(err)
		}
	}
	view := s.engine.Snapshot()
	return &view, nil
}

// AdvanceOrder submits the next status. Terminal and unknown statuses
// answer with an empty Next and change nothing.
func (s *OrderService) AdvanceOrder(ctx context.Context, req *rpc.AdvanceOrderRequest) (*rpc.AdvanceOrderResponse, error) {
	if req.OrderID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "order_id is required")
	}
	if _, ok := s.identity.Current(); !ok {
		return nil, errSignedOut
	}
	action, ok := lifecycle.NextAction(req.FromStatus)
	if !ok {
		return &rpc.AdvanceOrderResponse{}, nil
	}
	if s.engine.Updating(req.OrderID) {
		return nil, grpcstatus.Errorf(codes.Aborted, "order %s is already being updated", req.OrderID)
	}
	// The submission outlives a client that hangs up mid-request.
	if err := s.engine.RequestTransition(context.WithoutCancel(ctx), req.OrderID, req.FromStatus); err != nil {
		return nil, toStatus(err)
	}
	return &rpc.AdvanceOrderResponse{Next: action.Next}, nil
}

// WatchOrders sends the order view on open and after every order event.
// The order view is polled while at least one of these streams is open.
func (s *OrderService) WatchOrders(_ *rpc.WatchOrdersRequest, stream grpc.ServerStreamingServer[rpc.OrdersUpdate]) error {
	ch, unsub := s.bus.Subscribe("order.", 64)
	defer unsub()
	release := s.watcher.WatchOrders()
	defer release()

	watchID := uuid.NewString()
	s.logger.Debug("order watch opened", zap.String("watch_id", watchID))
	defer s.logger.Debug("order watch closed", zap.String("watch_id", watchID))

	if err := stream.Send(&rpc.OrdersUpdate{View: s.engine.Snapshot()}); err != nil {
		return err
	}
	for {
		select {
		case evt := <-ch:
			update := &rpc.OrdersUpdate{
				View:      s.engine.Snapshot(),
				ScrollTop: evt.Kind == bus.KindOrdersScrollTop,
			}
			if err := stream.Send(update); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
