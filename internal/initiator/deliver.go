package initiator

import (
	"context"
	"log"
	"time"

	"pal/internal/message"
	"pal/internal/policy"
)

// Deliver is the client-triggered release path: list what is due, gate each
// message through the send policy, and commit with the conditional
// mark-sent.
type Deliver struct {
	Queue  *message.Queue
	Policy *policy.Policy
}

// Pending returns the due messages released at now. A message is only
// included when this call won the mark-sent conditional update, so
// concurrent pollers for the same user never hand out the same row twice.
func (d *Deliver) Pending(ctx context.Context, userID uint64, now time.Time) ([]message.Message, error) {
	due, err := d.Queue.ListDue(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	var out []message.Message
	for _, m := range due {
		sched := m.ScheduledTime
		ok, err := d.Policy.CanSendNow(ctx, userID, m.Kind, &sched, now)
		if err != nil {
			log.Printf("deliver: policy for message %s: %v", m.ID, err)
			continue
		}
		if !ok {
			continue
		}

		won, err := d.Queue.MarkSent(ctx, m.ID, now)
		if err != nil {
			log.Printf("deliver: mark sent %s: %v", m.ID, err)
			continue
		}
		if !won {
			continue
		}

		m.Sent = true
		sentAt := now
		m.SentAt = &sentAt
		out = append(out, m)
	}
	return out, nil
}
