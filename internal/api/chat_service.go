package api

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/chat"
	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/rpc"
)

// ChatService implements rpc.ChatServer.
type ChatService struct {
	engine   *chat.Engine
	watcher  Watcher
	identity Identity
	bus      *bus.Bus
	logger   *zap.Logger
}

// NewChatService creates a new chat service.
func NewChatService(e *chat.Engine, w Watcher, id Identity, b *bus.Bus, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{engine: e, watcher: w, identity: id, bus: b, logger: logger.Named("api")}
}

func (s *ChatService) ListMessages(ctx context.Context, req *rpc.ListMessagesRequest) (*chat.View, error) {
	if req.OrderID == "" {
		return nil, errNoOrder
	}
	if req.Refresh {
		if err := s.engine.Refresh(ctx, req.OrderID); err != nil {
			return nil, toStatus(err)
		}
	}
	view := s.engine.Snapshot(req.OrderID)
	return &view, nil
}

// SendMessage posts text to the order's chat. Blank text is accepted and
// ignored.
func (s *ChatService) SendMessage(ctx context.Context, req *rpc.SendMessageRequest) (*rpc.SendMessageResponse, error) {
	if req.OrderID == "" {
		return nil, errNoOrder
	}
	if _, ok := s.identity.Current(); !ok {
		return nil, errSignedOut
	}
	if err := s.engine.Send(context.WithoutCancel(ctx), req.OrderID, req.Text); err != nil {
		return nil, toStatus(err)
	}
	return &rpc.SendMessageResponse{}, nil
}

func (s *ChatService) SetDraft(_ context.Context, req *rpc.SetDraftRequest) (*rpc.SetDraftResponse, error) {
	if req.OrderID == "" {
		return nil, errNoOrder
	}
	s.engine.SetDraft(req.OrderID, req.Text)
	return &rpc.SetDraftResponse{}, nil
}

// WatchChat streams one order's chat. The chat is polled while at least one
// stream for it is open.
func (s *ChatService) WatchChat(req *rpc.WatchChatRequest, stream grpc.ServerStreamingServer[rpc.ChatUpdate]) error {
	if req.OrderID == "" {
		return errNoOrder
	}
	ch, unsub := s.bus.Subscribe("chat.", 64)
	defer unsub()
	release := s.watcher.WatchChat(req.OrderID)
	defer release()

	log := s.logger.With(zap.String("watch_id", uuid.NewString()), zap.String("order_id", req.OrderID.String()))
	log.Debug("chat watch opened")
	defer log.Debug("chat watch closed")

	if err := stream.Send(&rpc.ChatUpdate{View: s.engine.Snapshot(req.OrderID)}); err != nil {
		return err
	}
	for {
		select {
		case evt := <-ch:
			orderID, grew := chatEventOrder(evt)
			if orderID != req.OrderID {
				continue
			}
			if err := stream.Send(&rpc.ChatUpdate{View: s.engine.Snapshot(req.OrderID), Grew: grew}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

var errNoOrder = grpcstatus.Error(codes.InvalidArgument, "order_id is required")

// chatEventOrder returns the order an event concerns and whether it
// reports a grown history.
func chatEventOrder(evt bus.Event) (domain.ID, bool) {
	switch p := evt.Payload.(type) {
	case chat.Grew:
		return p.OrderID, true
	case domain.ID:
		return p, false
	default:
		return "", false
	}
}
