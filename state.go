package crawlfront

import (
	"bytes"
	"encoding/json"
	"reflect"
	"slices"
)

// StateVar is one crawl-scoped state value captured in a frontier request.
type StateVar struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ReplayOutcome reports what Replay did with an incoming state value.
type ReplayOutcome int

const (
	// ReplayApplied means the slot was unset and now holds the value.
	ReplayApplied ReplayOutcome = iota
	// ReplayUnchanged means the slot already held an equal value.
	ReplayUnchanged
	// ReplayConflict means the slot held a different value, which was kept.
	ReplayConflict
	// ReplayUnknown means the name is not a declared slot.
	ReplayUnknown
)

// CrawlState is the bounded set of named state slots shared by all requests
// of a crawl session. It is owned by the control loop and is not safe for
// concurrent use.
type CrawlState struct {
	names  []string
	values map[string]any
}

// NewCrawlState returns a state with the given slot names, all unset.
func NewCrawlState(names ...string) *CrawlState {
	return &CrawlState{
		names:  slices.Compact(slices.Clone(names)),
		values: make(map[string]any, len(names)),
	}
}

// Names returns the declared slot names in declaration order.
func (s *CrawlState) Names() []string {
	return slices.Clone(s.names)
}

// Get returns the value of a slot and whether it is set.
func (s *CrawlState) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Set assigns a slot. Returns EINVALID for undeclared names.
func (s *CrawlState) Set(name string, value any) error {
	if !slices.Contains(s.names, name) {
		return Errorf(EINVALID, "state attribute %q is not declared", name)
	}
	s.values[name] = value
	return nil
}

// Snapshot captures every declared slot in declaration order. Unset slots
// are captured with a nil value.
func (s *CrawlState) Snapshot() []StateVar {
	if len(s.names) == 0 {
		return nil
	}
	vars := make([]StateVar, 0, len(s.names))
	for _, name := range s.names {
		vars = append(vars, StateVar{Name: name, Value: s.values[name]})
	}
	return vars
}

// Replay applies an incoming value to a slot. A set slot is never
// overwritten: a different incoming value is reported as ReplayConflict and
// discarded.
func (s *CrawlState) Replay(name string, value any) ReplayOutcome {
	if !slices.Contains(s.names, name) {
		return ReplayUnknown
	}
	prev, ok := s.values[name]
	if !ok || prev == nil {
		if value == nil {
			return ReplayUnchanged
		}
		s.values[name] = value
		return ReplayApplied
	}
	if stateEqual(prev, value) {
		return ReplayUnchanged
	}
	return ReplayConflict
}

// stateEqual compares values by their JSON encoding so that values which
// went through a serializing frontier backend (int vs float64) still match.
func stateEqual(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(ab, bb)
}
