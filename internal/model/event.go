package model

import "time"

// Event is a listing published by an organizer.  Ticket classes hang off
// an event and are deleted with it.
//
// Fields:
//  ID          – primary key identifier.
//  OrganizerID – user who owns the event and receives its payouts.
//  Title       – display title.
//  Description – free-form description.
//  Location    – venue text.
//  Category    – one of music, sports, nightlife.
//  StartsAt    – doors open; refunds are refused from this moment.
//  EndsAt      – end of the event; the payout sweep looks at this.
//  PayoutDone  – set once the sweep has emitted the event's payout.
type Event struct {
	ID          uint64    // events.id
	OrganizerID uint64    // events.organizer_id
	Title       string    // events.title
	Description string    // events.description
	Location    string    // events.location
	Category    string    // events.category
	StartsAt    time.Time // events.starts_at
	EndsAt      time.Time // events.ends_at
	PayoutDone  bool      // events.payout_done
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}

// Started reports whether the event has begun at the given instant.
func (e Event) Started(now time.Time) bool {
	return !e.StartsAt.After(now)
}

// Ended reports whether the event is over at the given instant.
func (e Event) Ended(now time.Time) bool {
	return e.EndsAt.Before(now)
}
