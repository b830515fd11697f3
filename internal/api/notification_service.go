package api

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/notifications"
	"github.com/matheus3301/drv/internal/rpc"
)

// NotificationService implements rpc.NotificationServer.
type NotificationService struct {
	engine   *notifications.Engine
	watcher  Watcher
	identity Identity
	bus      *bus.Bus
	logger   *zap.Logger
}

func NewNotificationService(e *notifications.Engine, w Watcher, id Identity, b *bus.Bus, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{engine: e, watcher: w, identity: id, bus: b, logger: logger.Named("api")}
}

func (s *NotificationService) ListNotifications(ctx context.Context, req *rpc.ListNotificationsRequest) (*notifications.View, error) {
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

func (s *NotificationService) WatchNotifications(_ *rpc.WatchNotificationsRequest, stream grpc.ServerStreamingServer[notifications.View]) error {
	ch, unsub := s.bus.Subscribe("notification.", 16)
	defer unsub()
	release := s.watcher.WatchNotifications()
	defer release()

	view := s.engine.Snapshot()
	if err := stream.Send(&view); err != nil {
		return err
	}
	for {
		select {
		case <-ch:
			view := s.engine.Snapshot()
			if err := stream.Send(&view); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
