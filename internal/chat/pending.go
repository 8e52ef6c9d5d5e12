package chat

// PendingState is the state of an externally requested contact selection.
// Transitions are driven by data arrival, never by timers:
//
//	Idle -> AwaitingContactList   on RequestContact
//	AwaitingContactList -> Resolved       when the contact shows up
//	AwaitingContactList -> Unresolvable   when every source has reported and
//	                                      the non-empty list lacks the contact
//	any -> Idle                           on a manual selection or Close
type PendingState int

const (
	PendingIdle PendingState = iota
	PendingAwaiting
	PendingResolved
	PendingUnresolvable
)

func (s PendingState) String() string {
	switch s {
	case PendingAwaiting:
		return "awaiting_contact_list"
	case PendingResolved:
		return "resolved"
	case PendingUnresolvable:
		return "unresolvable"
	default:
		return "idle"
	}
}

type pendingResolution struct {
	state     PendingState
	contactID string
}
