package navigation

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by route queries. The not-found family is an
// expected outcome of a query, not a failure of the engine.
var (
	// ErrUnknownNode is returned when a query names a node the building lacks.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNoPath means the target is unreachable under the query's hazards.
	ErrNoPath = errors.New("no path available")

	// ErrNoAccessiblePath means the target is unreachable in accessibility
	// mode; a route may exist that requires stairs.
	ErrNoAccessiblePath = errors.New("no accessible path available, the route may require stairs")

	// ErrNoSafeTarget means neither an exit nor, where allowed, a refuge is reachable.
	ErrNoSafeTarget = errors.New("no reachable exit or refuge")
)

// IsNotFound reports whether err is one of the expected "no result" outcomes.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoPath) || errors.Is(err, ErrNoAccessiblePath) || errors.Is(err, ErrNoSafeTarget)
}

// IntegrityError reports violations found while constructing a Building.
type IntegrityError struct {
	Problems []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("building model integrity: %s", strings.Join(e.Problems, "; "))
}
