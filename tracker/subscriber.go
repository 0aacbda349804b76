package tracker

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// statusEvent mirrors the payload published on order channels.
type statusEvent struct {
	OrderID   uint      `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// Subscriber is the push-subscription consumer: it decodes incoming channel
// messages and applies them through the same reconciler the poller uses, so
// a duplicate delivery is just a dropped merge.
type Subscriber struct {
	reconciler *Reconciler
	log        *logrus.Logger
}

func NewSubscriber(rec *Reconciler, log *logrus.Logger) *Subscriber {
	return &Subscriber{reconciler: rec, log: log}
}

// HandleMessage applies one raw websocket payload. Returns whether local
// state changed.
func (s *Subscriber) HandleMessage(raw []byte) (bool, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, err
	}
	if env.Event != "status-update" {
		// Other event kinds carry full orders for the dashboard; the
		// tracking consumer only reconciles status updates.
		return false, nil
	}

	var ev statusEvent
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		return false, err
	}
	if ev.OrderID == 0 {
		return false, errors.New("status update without order id")
	}

	changed := s.reconciler.Apply(OrderSnapshot{
		OrderID:   ev.OrderID,
		Status:    ev.Status,
		UpdatedAt: ev.UpdatedAt,
	})
	if changed {
		s.log.Infof("tracker: order %d is now %s", ev.OrderID, ev.Status)
	}
	return changed, nil
}
