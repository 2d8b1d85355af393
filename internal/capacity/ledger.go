// Package capacity decides admission against an event's configured capacity.
package capacity

import "github.com/Shivanand-hulikatti/club-events/internal/model"

// Ledger is a point-in-time view of an event's admission counters.
// Registered must be counted from the registration collection, not read
// from the denormalized event counter.
type Ledger struct {
	Capacity   int
	Registered int
}

// Unlimited reports whether the event accepts any number of registrants.
func (l Ledger) Unlimited() bool {
	return l.Capacity == 0
}

// HasRoom reports whether one more registrant can be admitted.
func (l Ledger) HasRoom() bool {
	return l.Unlimited() || l.Registered < l.Capacity
}

// Admit returns the status a new registrant receives. Overflow is never an
// error: it becomes a waitlist entry.
func (l Ledger) Admit() model.RegistrationStatus {
	if l.HasRoom() {
		return model.RegistrationRegistered
	}
	return model.RegistrationWaitlisted
}

// FreeSlots returns how many waitlisted registrations may be promoted.
// Unlimited events never waitlist, so they report zero.
func (l Ledger) FreeSlots() int {
	if l.Unlimited() || l.Registered >= l.Capacity {
		return 0
	}
	return l.Capacity - l.Registered
}

// Covers reports whether a resource seating resourceCapacity can hold the
// current registrations.
func Covers(resourceCapacity, registrations int) bool {
	return resourceCapacity >= registrations
}
