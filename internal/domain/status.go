package domain

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

// validNext encodes the order lifecycle: pending -> paid -> shipped, with
// cancellation reachable from any non-terminal state. Re-setting the current
// status is always allowed; shipped and cancelled are terminal otherwise.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPending: true, StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {StatusPaid: true, StatusShipped: true, StatusCancelled: true},
	StatusShipped:   {StatusShipped: true},
	StatusCancelled: {StatusCancelled: true},
}

// ParseStatus validates a raw status value from a form or API call.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusPaid, StatusShipped, StatusCancelled:
		return Status(s), nil
	}
	return "", &InvalidStatusError{Value: s}
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no state other than itself is reachable.
func (s Status) Terminal() bool {
	return s == StatusShipped || s == StatusCancelled
}
