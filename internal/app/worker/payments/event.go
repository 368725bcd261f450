// internal/app/worker/payments/event.go

// Package payments consumes payment-confirmation events from the broker and
// folds them into registration state: payment facts, status promotion, and
// the best-effort service space auto-assignment.
package payments

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one payment confirmation from the gateway. PaymentID is the
// gateway's identity for the payment and the dedupe key under replay.
type Event struct {
	ParticipantID string    `json:"participant_id"`
	PaymentID     string    `json:"payment_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Method        string    `json:"method"`
	PaidAt        time.Time `json:"paid_at"`
}

// ParseEvent decodes and structurally validates one broker message. A
// malformed event is a permanent failure; the consumer drops it rather than
// requeueing.
func ParseEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("malformed payment event: %w", err)
	}
	if ev.ParticipantID == "" {
		return Event{}, fmt.Errorf("payment event missing participant_id")
	}
	if ev.PaymentID == "" {
		return Event{}, fmt.Errorf("payment event missing payment_id")
	}
	if ev.Amount < 0 {
		return Event{}, fmt.Errorf("payment event has negative amount %d", ev.Amount)
	}
	if ev.PaidAt.IsZero() {
		ev.PaidAt = time.Now()
	}
	return ev, nil
}
