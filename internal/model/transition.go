package model

import "fmt"

// Action is an admin operation on a registration.
type Action string

const (
	ActionApprove    Action = "approve"
	ActionAssignDate Action = "assign_date"
	ActionReject     Action = "reject"
	ActionCancel     Action = "cancel"
)

// Change is the outcome of looking up a transition: the next status and how
// many seats to give back to (positive) or take from (negative) the tour.
type Change struct {
	From      Status
	To        Status
	SeatDelta int
}

// Noop reports whether the change leaves both status and inventory untouched.
func (c Change) Noop() bool {
	return c.From == c.To && c.SeatDelta == 0
}

type transitionKey struct {
	from   Status
	action Action
}

// transitions is the complete rule set. A missing key means the action is not
// allowed from that status. Every seat change is derived from this table and
// nowhere else.
var transitions = map[transitionKey]Change{
	{StatusPending, ActionApprove}:     {To: StatusApproved, SeatDelta: -1},
	{StatusRejected, ActionApprove}:    {To: StatusApproved, SeatDelta: -1},
	{StatusApproved, ActionApprove}:    {To: StatusApproved, SeatDelta: 0},
	{StatusPending, ActionAssignDate}:  {To: StatusApproved, SeatDelta: -1},
	{StatusRejected, ActionAssignDate}: {To: StatusApproved, SeatDelta: -1},
	{StatusApproved, ActionAssignDate}: {To: StatusApproved, SeatDelta: 0},
	{StatusPending, ActionReject}:      {To: StatusRejected, SeatDelta: 0},
	{StatusApproved, ActionReject}:     {To: StatusRejected, SeatDelta: 1},
	{StatusRejected, ActionReject}:     {To: StatusRejected, SeatDelta: 0},
	{StatusApproved, ActionCancel}:     {To: StatusRejected, SeatDelta: 1},
}

// Transition returns the change produced by applying action to a registration
// currently in status from, or ErrInvalidState if the action is not allowed.
func Transition(from Status, action Action) (Change, error) {
	c, ok := transitions[transitionKey{from: from, action: action}]
	if !ok {
		return Change{}, fmt.Errorf("%w: cannot %s a %s registration", ErrInvalidState, action, from)
	}
	c.From = from
	return c, nil
}

// ApplySeatDelta returns available+delta, or ErrCapacity if the result would
// fall outside 0..capacity.
func ApplySeatDelta(available, capacity, delta int) (int, error) {
	next := available + delta
	if next < 0 || next > capacity {
		return available, fmt.Errorf("%w: %d%+d not within 0..%d", ErrCapacity, available, delta, capacity)
	}
	return next, nil
}
