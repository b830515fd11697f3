package api

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/failure"
	"github.com/matheus3301/drv/internal/rpc"
	"github.com/matheus3301/drv/internal/session"
	"github.com/matheus3301/drv/internal/status"
)

// Authenticator exchanges credentials for a driver identity.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (domain.Identity, error)
}

// Journal lists recorded driver actions.
type Journal interface {
	ListActions(ctx context.Context, orderID domain.ID, limit int) ([]domain.Activity, error)
}

// SessionService implements rpc.SessionServer.
type SessionService struct {
	sessionName string
	baseURL     string
	startedAt   time.Time
	machine     *status.Machine
	gate        *session.Gate
	auth        Authenticator
	journal     Journal
	bus         *bus.Bus
	logger      *zap.Logger

	loginMu sync.Mutex
}

// SessionDeps groups the collaborators of a SessionService.
type SessionDeps struct {
	SessionName string
	BaseURL     string
	Machine     *status.Machine
	Gate        *session.Gate
	Auth        Authenticator
	Journal     Journal
	Bus         *bus.Bus
	Logger      *zap.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(d SessionDeps) *SessionService {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessionName: d.SessionName,
		baseURL:     d.BaseURL,
		startedAt:   time.Now(),
		machine:     d.Machine,
		gate:        d.Gate,
		auth:        d.Auth,
		journal:     d.Journal,
		bus:         d.Bus,
		logger:      logger.Named("api"),
	}
}

func (s *SessionService) GetStatus(_ context.Context, _ *rpc.GetStatusRequest) (*rpc.StatusResponse, error) {
	resp := &rpc.StatusResponse{
		Session:  s.sessionName,
		Status:   string(s.machine.Current()),
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
		BaseURL:  s.baseURL,
		PID:      os.Getpid(),
	}
	if id, ok := s.gate.Current(); ok {
		resp.Driver = &id
	}
	return resp, nil
}

// Login signs the driver in. Only one login runs at a time and a signed-in
// session must log out first.
func (s *SessionService) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "username and password are required")
	}

	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	if err := s.machine.Transition(status.SigningIn); err != nil {
		return nil, grpcstatus.Errorf(codes.FailedPrecondition, "cannot sign in while %s", s.machine.Current())
	}

	id, err := s.auth.Login(ctx, username, req.Password)
	if err != nil {
		_ = s.machine.Transition(status.SignedOut)
		s.logger.Warn("login failed", zap.String("username", username), zap.Error(err))
		if failure.KindOf(err) == failure.Rejected {
			return nil, grpcstatus.Error(codes.Unauthenticated, err.Error())
		}
		return nil, toStatus(err)
	}

	s.gate.Set(id)
	if err := s.machine.Transition(status.Online); err != nil {
		s.logger.Error("unexpected state after login", zap.Error(err))
	}
	s.logger.Info("driver signed in", zap.String("driver_id", id.DriverID.String()))
	return &rpc.LoginResponse{Driver: id}, nil
}

// Logout forgets the identity. Polling stops and the views are cleared.
func (s *SessionService) Logout(_ context.Context, _ *rpc.LogoutRequest) (*rpc.LogoutResponse, error) {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	s.gate.Clear()
	if s.machine.Current() == status.Online {
		if err := s.machine.Transition(status.SignedOut); err != nil {
			return nil, grpcstatus.Error(codes.Internal, err.Error())
		}
	}
	s.logger.Info("driver signed out")
	return &rpc.LogoutResponse{}, nil
}

func (s *SessionService) ListActivity(ctx context.Context, req *rpc.ListActivityRequest) (*rpc.ListActivityResponse, error) {
	if req.Limit < 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "limit must not be negative")
	}
	entries, err := s.journal.ListActions(ctx, req.OrderID, req.Limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list activity: %v", err)
	}
	return &rpc.ListActivityResponse{Entries: entries}, nil
}

// WatchAlerts streams recoverable alerts until the client goes away.
func (s *SessionService) WatchAlerts(_ *rpc.WatchAlertsRequest, stream grpc.ServerStreamingServer[failure.Alert]) error {
	ch, unsub := s.bus.Subscribe(failure.AlertKind, 64)
	defer unsub()

	watchID := uuid.NewString()
	s.logger.Debug("alert watch opened", zap.String("watch_id", watchID))
	defer s.logger.Debug("alert watch closed", zap.String("watch_id", watchID))

	for {
		select {
		case evt := <-ch:
			alert, ok := evt.Payload.(failure.Alert)
			if !ok {
				continue
			}
			if err := stream.Send(&alert); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
