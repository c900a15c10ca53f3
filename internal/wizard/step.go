package wizard

import "fmt"

// Step is one of the four ordered step groups of the booking wizard
type Step int

const (
	StepEventDetails Step = iota
	StepPackageMenu
	StepFare
	StepVerificationConfirmation
)

// StepCount is the number of step groups
const StepCount = 4

var stepNames = [StepCount]string{
	"event-details",
	"package-menu",
	"fare",
	"verification-confirmation",
}

// transition lists the steps reachable from a step. A zero-valued flag means
// the move leaves the step group sequence (back at the first step) or is
// not allowed (forward at the last step).
type transition struct {
	next    Step
	hasNext bool
	prev    Step
	hasPrev bool
}

var transitions = map[Step]transition{
	StepEventDetails:             {next: StepPackageMenu, hasNext: true},
	StepPackageMenu:              {next: StepFare, hasNext: true, prev: StepEventDetails, hasPrev: true},
	StepFare:                     {next: StepVerificationConfirmation, hasNext: true, prev: StepPackageMenu, hasPrev: true},
	StepVerificationConfirmation: {prev: StepFare, hasPrev: true},
}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// Valid reports whether s is a known step
func (s Step) Valid() bool {
	return s >= StepEventDetails && s <= StepVerificationConfirmation
}

// Next returns the step after s, if any
func (s Step) Next() (Step, bool) {
	t := transitions[s]
	return t.next, t.hasNext
}

// Prev returns the step before s, if any
func (s Step) Prev() (Step, bool) {
	t := transitions[s]
	return t.prev, t.hasPrev
}

// MarshalText encodes the step by name
func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid step %d", int(s))
	}
	return []byte(stepNames[s]), nil
}

// UnmarshalText decodes a step name
func (s *Step) UnmarshalText(text []byte) error {
	step, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = step
	return nil
}

// ParseStep looks up a step by name
func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}
