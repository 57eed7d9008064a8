// Package scenario defines the per-subject dosing/observation record that
// the NPAG engine evaluates a structural model against. Scenarios are
// immutable once parsed: every component downstream takes a shared,
// non-owning reference and never mutates it.
package scenario

import (
	"errors"
	"fmt"
)

// EventKind distinguishes the three kinds of entry in a subject's event
// timeline.
type EventKind int

const (
	// Bolus is an instantaneous dose: a discontinuous state jump.
	Bolus EventKind = iota
	// Infusion is a time-windowed rate input.
	Infusion
	// Observation is a measured concentration at a point in time.
	Observation
)

func (k EventKind) String() string {
	switch k {
	case Bolus:
		return "bolus"
	case Infusion:
		return "infusion"
	case Observation:
		return "observation"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a single entry in a subject's ordered event sequence.
type Event struct {
	// Time is the event time, in the same units as the structural
	// model's independent variable.
	Time float64
	Kind EventKind

	// Dose is the bolus/infusion amount. Nil for Observation events.
	Dose *float64
	// Duration is the infusion duration. Nil unless Kind == Infusion.
	Duration *float64
	// InputCompartment is the 1-based compartment index a dose/infusion
	// enters. Nil for Observation events.
	InputCompartment *int
	// OutputEquation is the 1-based index of the observation equation
	// this event reads from. Nil unless Kind == Observation.
	OutputEquation *int
}

// CovariatePoint is one sample of a time-varying covariate.
type CovariatePoint struct {
	Time  float64
	Value float64
}

// Scenario is one subject's immutable dosing/observation record.
type Scenario struct {
	// ID uniquely and stably identifies the subject, used as the
	// subject half of prediction cache keys.
	ID string

	events     []Event
	obs        []float64
	obsTimes   []float64
	covariates map[string][]CovariatePoint
}

// New validates and constructs a Scenario. Events must be in
// non-decreasing time order; the number of Observation-kind events must
// equal len(obs) and len(obsTimes).
func New(id string, events []Event, obs, obsTimes []float64, covariates map[string][]CovariatePoint) (*Scenario, error) {
	if len(obs) == 0 {
		return nil, ErrEmptyObservations
	}
	if len(obs) != len(obsTimes) {
		return nil, fmt.Errorf("scenario %s: obs and obsTimes length mismatch: %d != %d", id, len(obs), len(obsTimes))
	}

	nObsEvents := 0
	last := -1.0
	first := true
	for i, e := range events {
		if !first && e.Time < last {
			return nil, fmt.Errorf("scenario %s: event %d out of time order", id, i)
		}
		first = false
		last = e.Time
		if e.Kind == Observation {
			nObsEvents++
		}
	}
	if nObsEvents != len(obs) {
		return nil, fmt.Errorf("scenario %s: %d observation events but %d observed values", id, nObsEvents, len(obs))
	}

	evCopy := make([]Event, len(events))
	copy(evCopy, events)
	obsCopy := make([]float64, len(obs))
	copy(obsCopy, obs)
	obsTimesCopy := make([]float64, len(obsTimes))
	copy(obsTimesCopy, obsTimes)

	var covCopy map[string][]CovariatePoint
	if covariates != nil {
		covCopy = make(map[string][]CovariatePoint, len(covariates))
		for name, pts := range covariates {
			cp := make([]CovariatePoint, len(pts))
			copy(cp, pts)
			covCopy[name] = cp
		}
	}

	return &Scenario{
		ID:         id,
		events:     evCopy,
		obs:        obsCopy,
		obsTimes:   obsTimesCopy,
		covariates: covCopy,
	}, nil
}

// ErrEmptyObservations is returned by New when a scenario has no
// observations: a subject must contribute at least one measurement to the
// likelihood.
var ErrEmptyObservations = errors.New("scenario: empty observation list")

// Events returns the subject's ordered event sequence. The returned slice
// must not be mutated by the caller.
func (s *Scenario) Events() []Event { return s.events }

// Obs returns the subject's observed values, in event order.
func (s *Scenario) Obs() []float64 { return s.obs }

// ObsTimes returns the subject's observation times, in event order.
func (s *Scenario) ObsTimes() []float64 { return s.obsTimes }

// NumObs returns the number of observations this subject contributes.
func (s *Scenario) NumObs() int { return len(s.obs) }

// Covariate returns the named covariate time-series, or (nil, false) if
// the subject has none by that name.
func (s *Scenario) Covariate(name string) ([]CovariatePoint, bool) {
	pts, ok := s.covariates[name]
	return pts, ok
}

// AddEventInterval returns a copy of the scenario with additional,
// evenly-spaced Observation events inserted after the last dose, at
// spacing idelta, up to (not including) the time of the last existing
// event, and, if tad > 0, one further observation at tad time units after
// the last dose when that time falls after the last existing event. The
// copy keeps the receiver's Obs and ObsTimes unchanged. Used by the
// simulation entrypoint to densify a prediction timeline; it never
// mutates the receiver.
func (s *Scenario) AddEventInterval(idelta, tad float64) *Scenario {
	if idelta <= 0 && tad <= 0 {
		return s
	}

	events := make([]Event, len(s.events))
	copy(events, s.events)

	var lastDoseTime, lastTime float64
	haveDose := false
	if len(events) > 0 {
		lastTime = events[len(events)-1].Time
	}
	for _, e := range events {
		if e.Kind == Bolus || e.Kind == Infusion {
			lastDoseTime = e.Time
			haveDose = true
		}
	}

	eqOne := 1
	if idelta > 0 && haveDose {
		for t := lastDoseTime + idelta; t < lastTime; t += idelta {
			events = append(events, Event{Time: t, Kind: Observation, OutputEquation: &eqOne})
		}
	}
	if tad > 0 {
		t := lastDoseTime + tad
		if t > lastTime {
			events = append(events, Event{Time: t, Kind: Observation, OutputEquation: &eqOne})
		}
	}

	sortEventsByTime(events)

	return &Scenario{
		ID:         s.ID,
		events:     events,
		obs:        s.obs,
		obsTimes:   s.obsTimes,
		covariates: s.covariates,
	}
}

func sortEventsByTime(events []Event) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j].Time < events[j-1].Time; j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}
