// Package events carries domain changes out of committed transactions to the
// delivery channels (websocket, redis pub/sub, amqp, push, email).
package events

import (
	"context"
	"sync"

	"github.com/chachabrian/mooveit-carpool/internal/models"
)

const (
	BookingCreated   = "booking.created"
	BookingAccepted  = "booking.accepted"
	BookingRejected  = "booking.rejected"
	BookingCancelled = "booking.cancelled"
	TripCreated      = "trip.created"
	TripCancelled    = "trip.cancelled"
	TripCompleted    = "trip.completed"
	ReviewCreated    = "review.created"
	ReviewDeleted    = "review.deleted"
	MessageSent      = "message.sent"
	ReportCreated    = "report.created"
	ReportUpdated    = "report.updated"
)

// Event is published only after the transaction that produced it committed.
type Event struct {
	Type       string
	Recipients []uint
	Data       any
	// Notification is the persisted record for the first recipient, if any.
	Notification *models.Notification
}

type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Types() []string {
	var out []string
	for _, ev := range r.Events() {
		out = append(out, ev.Type)
	}
	return out
}
