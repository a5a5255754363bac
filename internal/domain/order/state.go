package order

import "fmt"

// TransitionError reports a rejected status change.
type TransitionError struct {
	Current   Status
	Requested Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order: cannot transition from %s to %s", e.Current, e.Requested)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// OrderState implements the state pattern for order lifecycle transitions.
// States are pure: they know nothing about stock or storage.
type OrderState interface {
	Status() Status
	Pay() (OrderState, error)
	Ship() (OrderState, error)
	Cancel() (OrderState, error)
}

// StateOf returns the state object for a persisted status.
func StateOf(s Status) (OrderState, error) {
	switch s {
	case StatusPending:
		return pendingState{}, nil
	case StatusPaid:
		return paidState{}, nil
	case StatusShipped:
		return shippedState{}, nil
	case StatusCanceled:
		return canceledState{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Transition validates from -> to. Self-transitions are rejected like any other pair
// missing from the table.
func Transition(from, to Status) error {
	state, err := StateOf(from)
	if err != nil {
		return err
	}

	var next OrderState
	switch to {
	case StatusPaid:
		next, err = state.Pay()
	case StatusShipped:
		next, err = state.Ship()
	case StatusCanceled:
		next, err = state.Cancel()
	default:
		// PENDING is initial only; nothing transitions into it.
		err = reject(from, to)
	}
	if err != nil {
		return err
	}
	if next.Status() != to {
		return reject(from, to)
	}
	return nil
}

// Terminal reports whether no transition leaves s.
func Terminal(s Status) bool {
	return s == StatusShipped || s == StatusCanceled
}

func reject(from, to Status) error {
	return &TransitionError{Current: from, Requested: to}
}

type pendingState struct{}

func (pendingState) Status() Status              { return StatusPending }
func (pendingState) Pay() (OrderState, error)    { return paidState{}, nil }
func (pendingState) Ship() (OrderState, error)   { return nil, reject(StatusPending, StatusShipped) }
func (pendingState) Cancel() (OrderState, error) { return canceledState{}, nil }

type paidState struct{}

func (paidState) Status() Status           { return StatusPaid }
func (paidState) Pay() (OrderState, error) { return nil, reject(StatusPaid, StatusPaid) }
func (paidState) Ship() (OrderState, error)   { return shippedState{}, nil }
func (paidState) Cancel() (OrderState, error) { return canceledState{}, nil }

type shippedState struct{}

func (shippedState) Status() Status              { return StatusShipped }
func (shippedState) Pay() (OrderState, error)    { return nil, reject(StatusShipped, StatusPaid) }
func (shippedState) Ship() (OrderState, error)   { return nil, reject(StatusShipped, StatusShipped) }
func (shippedState) Cancel() (OrderState, error) { return nil, reject(StatusShipped, StatusCanceled) }

type canceledState struct{}

func (canceledState) Status() Status              { return StatusCanceled }
func (canceledState) Pay() (OrderState, error)    { return nil, reject(StatusCanceled, StatusPaid) }
func (canceledState) Ship() (OrderState, error)   { return nil, reject(StatusCanceled, StatusShipped) }
func (canceledState) Cancel() (OrderState, error) { return nil, reject(StatusCanceled, StatusCanceled) }
