package outbox

import "time"

// Topics carrying booking lifecycle events. One topic per event kind so
// consumers subscribe to exactly what they handle.
const (
	TopicBookingConfirmed = "officehours.booking.confirmed.v1"
	TopicBookingCancelled = "officehours.booking.cancelled.v1"
)

const (
	EventTypeBookingConfirmed = "booking.confirmed"
	EventTypeBookingCancelled = "booking.cancelled"
)

// TopicFor maps an event type to its Kafka topic. Unknown types map to the
// empty string and are skipped by the publisher with a warning.
func TopicFor(eventType string) string {
	switch eventType {
	case EventTypeBookingConfirmed:
		return TopicBookingConfirmed
	case EventTypeBookingCancelled:
		return TopicBookingCancelled
	default:
		return ""
	}
}

// BookingEvent is the payload for both confirmed and cancelled events. It is
// denormalized so the notifier never has to call back into the service.
type BookingEvent struct {
	BookingID      string `json:"booking_id"`
	ProfessorID    string `json:"professor_id"`
	ProfessorName  string `json:"professor_name"`
	ProfessorEmail string `json:"professor_email"`
	StudentName    string `json:"student_name"`
	StudentEmail   string `json:"student_email"`
	Weekday        string `json:"weekday"`
	StartLabel     string `json:"start_label"`
	EndLabel       string `json:"end_label"`
	OccurredAt     string `json:"occurred_at"`
}

// Event is one outbox row awaiting publication.
type Event struct {
	ID          int64
	EventID     string
	EventType   string
	AggregateID string
	Payload     []byte
	Traceparent string
	Tracestate  string
	CreatedAt   time.Time
}
