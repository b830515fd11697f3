package failure

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/drv/internal/bus"
)

// AlertKind is the bus event kind for recoverable alerts.
const AlertKind = "alert.raised"

// Alert is a dismissable notice shown to the driver.
type Alert struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Op      string    `json:"op,omitempty"`
	Message string    `json:"message"`
	Raised  time.Time `json:"raised"`
}

// Raiser publishes recoverable failures as alerts.
type Raiser struct {
	bus    *bus.Bus
	logger *zap.Logger
}

// NewRaiser creates a Raiser. A nil bus only logs.
func NewRaiser(b *bus.Bus, logger *zap.Logger) *Raiser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Raiser{bus: b, logger: logger}
}

// Raise publishes err as an alert if it is recoverable and reports whether
// it did.
func (r *Raiser) Raise(err error) bool {
	if err == nil || !IsRecoverable(err) {
		return false
	}
	alert := Alert{
		ID:      uuid.NewString(),
		Kind:    KindOf(err),
		Message: err.Error(),
		Raised:  time.Now(),
	}
	var fe *Error
	if errors.As(err, &fe) {
		alert.Op = fe.Op
	}
	r.logger.Warn("alert raised",
		zap.String("alert_id", alert.ID),
		zap.Stringer("kind", alert.Kind),
		zap.String("op", alert.Op),
		zap.Error(err),
	)
	if r.bus != nil {
		r.bus.Publish(bus.Event{Kind: AlertKind, Timestamp: alert.Raised, Payload: alert})
	}
	return true
}
