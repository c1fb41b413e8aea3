package model

import "time"

// NotificationKind distinguishes the two registration facts.
type NotificationKind string

const (
	KindInscription  NotificationKind = "inscription"
	KindCancellation NotificationKind = "cancellation"
)

// Notification is the fact broadcast to clients watching an event after a
// registration is created or cancelled.
type Notification struct {
	Type              NotificationKind `json:"type"`
	EventID           int64            `json:"eventId"`
	EventTitle        string           `json:"eventTitle"`
	ParticipantName   string           `json:"participantName"`
	ParticipantPhone  string           `json:"participantPhone"`
	RemainingCapacity int              `json:"remainingCapacity"`
	TotalInscriptions int              `json:"totalInscriptions"`
	Timestamp         time.Time        `json:"timestamp"`
}

// ListUpdate is the reduced fact sent to every client so event lists can
// refresh their counters.
type ListUpdate struct {
	EventID           int64     `json:"eventId"`
	RemainingCapacity int       `json:"remainingCapacity"`
	TotalInscriptions int       `json:"totalInscriptions"`
	Timestamp         time.Time `json:"timestamp"`
}

// ListUpdate derives the list-level fact from n.
func (n Notification) ListUpdate() ListUpdate {
	return ListUpdate{
		EventID:           n.EventID,
		RemainingCapacity: n.RemainingCapacity,
		TotalInscriptions: n.TotalInscriptions,
		Timestamp:         n.Timestamp,
	}
}
