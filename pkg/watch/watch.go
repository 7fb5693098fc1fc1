// Package watch tracks prediction markets whose price starts moving
// before any bookmaker edge shows up, so sustained moves surface as
// signals even without a book match.
package watch

import "time"

// State of a watched market.
type State string

const (
	StateWatching  State = "watching"
	StateActive    State = "active"
	StateConfirmed State = "confirmed"
	StateDropped   State = "dropped"
	StateSignal    State = "signal"
)

// Terminal reports whether a state accepts no further transitions.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateDropped || s == StateSignal
}

// Entry is the tracked state for one market.
type Entry struct {
	ConditionID string    `json:"conditionId"`
	State       State     `json:"state"`
	Baseline    float64   `json:"baselinePrice"`
	LastPrice   float64   `json:"lastPrice"`
	MoveCount   int       `json:"moveCount"`
	EnteredAt   time.Time `json:"enteredAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DefaultSamplesToActivate is how many consecutive moved samples
// promote a market from watching to active.
const DefaultSamplesToActivate = 3

// Machine holds the transition thresholds.
type Machine struct {
	MoveThreshold     float64
	SamplesToActivate int
}

// NewMachine creates a machine with the given absolute price-move
// threshold and the default sample count.
func NewMachine(moveThreshold float64) *Machine {
	return &Machine{
		MoveThreshold:     moveThreshold,
		SamplesToActivate: DefaultSamplesToActivate,
	}
}

// NewEntry starts watching a market at its current price.
func NewEntry(conditionID string, price float64, now time.Time) *Entry {
	return &Entry{
		ConditionID: conditionID,
		State:       StateWatching,
		Baseline:    price,
		LastPrice:   price,
		EnteredAt:   now,
		UpdatedAt:   now,
	}
}

// Observe feeds a new price sample into the entry. A sample counts as
// moved when it sits at least MoveThreshold away from the baseline;
// a sample back inside the band resets the streak. After
// SamplesToActivate consecutive moved samples the entry goes active.
// Terminal entries ignore samples.
func (m *Machine) Observe(e *Entry, price float64, now time.Time) {
	if e.State.Terminal() {
		return
	}

	e.LastPrice = price
	e.UpdatedAt = now

	if e.State != StateWatching {
		return
	}

	move := price - e.Baseline
	if move < 0 {
		move = -move
	}

	if move >= m.MoveThreshold {
		e.MoveCount++
	} else {
		e.MoveCount = 0
	}

	if e.MoveCount >= m.SamplesToActivate {
		e.State = StateActive
		e.EnteredAt = now
	}
}

// Confirm marks an active entry as matched by a bookmaker edge.
func (m *Machine) Confirm(e *Entry, now time.Time) bool {
	if e.State != StateActive {
		return false
	}
	e.State = StateConfirmed
	e.EnteredAt = now
	e.UpdatedAt = now
	return true
}

// Expire closes the watch window. A still-watching entry is dropped;
// an active entry becomes a standalone movement signal.
func (m *Machine) Expire(e *Entry, now time.Time) State {
	switch e.State {
	case StateWatching:
		e.State = StateDropped
	case StateActive:
		e.State = StateSignal
	default:
		return e.State
	}
	e.EnteredAt = now
	e.UpdatedAt = now
	return e.State
}
