// Package selection tracks which pollsters feed the trend pipeline. Every
// known pollster has an explicit inclusion flag; bulk actions overwrite the
// whole map and individual toggles adjust single entries until the next bulk
// action. Each dashboard session owns an independent Manager; managers are
// never shared across sessions.
package selection

import (
	"errors"
	"sort"
	"sync"
)

// ErrUnknownPollster is returned when a toggle names a pollster that is not
// part of the current dataset.
var ErrUnknownPollster = errors.New("unknown pollster")

// Rule is a bulk selection action. The manager remembers the last applied
// rule so pollsters that appear in a reloaded dataset join the selection the
// same way the existing ones did.
type Rule string

const (
	RuleAll     Rule = "all"
	RuleNone    Rule = "none"
	RuleCurated Rule = "curated"
)

// State describes the selection as a whole. All, None and Curated are exact
// matches; anything else, typically after individual toggles, is Custom.
type State string

const (
	StateAll     State = "all"
	StateNone    State = "none"
	StateCurated State = "curated"
	StateCustom  State = "custom"
)

// Entry is one pollster's inclusion flag, used for API snapshots.
type Entry struct {
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// Manager holds the inclusion map for one session. All methods are safe for
// concurrent use; the mutex guards HTTP access within the session, not
// sharing between sessions.
type Manager struct {
	mu       sync.RWMutex
	included map[string]bool
	rule     Rule
	curated  map[string]struct{}
}

// NewManager creates a manager covering every known pollster. With RuleAll
// everything starts selected; RuleCurated starts from curated-list
// membership; RuleNone starts empty. Curated entries that match no known
// pollster are ignored.
func NewManager(known []string, rule Rule, curated []string) *Manager {
	m := &Manager{
		included: make(map[string]bool, len(known)),
		curated:  toSet(curated),
	}
	for _, name := range known {
		m.included[name] = false
	}
	switch rule {
	case RuleCurated:
		m.applyCuratedLocked()
	case RuleNone:
		m.rule = RuleNone
	default:
		m.selectAllLocked()
	}
	return m
}

// SelectAll marks every known pollster selected, discarding prior toggles.
func (m *Manager) SelectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selectAllLocked()
}

func (m *Manager) selectAllLocked() {
	for name := range m.included {
		m.included[name] = true
	}
	m.rule = RuleAll
}

// DeselectAll marks every known pollster deselected, discarding prior
// toggles. The resulting empty selection is valid and yields empty pipeline
// output, not an error.
func (m *Manager) DeselectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name := range m.included {
		m.included[name] = false
	}
	m.rule = RuleNone
}

// ApplyCurated overwrites the whole map from curated-list membership: listed
// pollsters become selected, everything else deselected. Curated names that
// match no known pollster are silently ignored. The list is retained so
// later dataset syncs apply the same membership test.
func (m *Manager) ApplyCurated(curated []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.curated = toSet(curated)
	m.applyCuratedLocked()
}

func (m *Manager) applyCuratedLocked() {
	for name := range m.included {
		_, listed := m.curated[name]
		m.included[name] = listed
	}
	m.rule = RuleCurated
}

// Set forces a single pollster's flag. The change survives until the next
// bulk action overwrites the whole map.
func (m *Manager) Set(name string, selected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.included[name]; !ok {
		return ErrUnknownPollster
	}
	m.included[name] = selected
	return nil
}

// Toggle flips a single pollster's flag and returns the new value.
func (m *Manager) Toggle(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.included[name]
	if !ok {
		return false, ErrUnknownPollster
	}
	m.included[name] = !current
	return !current, nil
}

// IsSelected reports whether a pollster is currently included. Unknown names
// report false.
func (m *Manager) IsSelected(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.included[name]
}

// Selected returns the currently included pollsters in lexicographic order.
// The result may be empty, which is a valid selection.
func (m *Manager) Selected() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	selected := make([]string, 0, len(m.included))
	for name, ok := range m.included {
		if ok {
			selected = append(selected, name)
		}
	}
	sort.Strings(selected)
	return selected
}

// SelectedSet returns the current selection as a membership set, for
// filter loops.
func (m *Manager) SelectedSet() map[string]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := make(map[string]struct{}, len(m.included))
	for name, ok := range m.included {
		if ok {
			set[name] = struct{}{}
		}
	}
	return set
}

// Snapshot returns every known pollster with its flag, sorted by name.
func (m *Manager) Snapshot() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]Entry, 0, len(m.included))
	for name, selected := range m.included {
		entries = append(entries, Entry{Name: name, Selected: selected})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Rule returns the last bulk action applied. It is the seeding rule for
// pollsters that appear on dataset reload, independent of later toggles.
func (m *Manager) Rule() Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rule
}

// State classifies the current selection: exact all/none/curated matches, or
// custom once toggles have produced any other mixture.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := true
	none := true
	curated := true
	for name, selected := range m.included {
		if selected {
			none = false
		} else {
			all = false
		}
		if _, listed := m.curated[name]; listed != selected {
			curated = false
		}
	}

	switch {
	case all:
		return StateAll
	case none:
		return StateNone
	case curated:
		return StateCurated
	default:
		return StateCustom
	}
}

// Sync reconciles the manager with a reloaded dataset's pollster list. New
// pollsters join per the last bulk rule; pollsters no longer in the dataset
// drop out. Flags of surviving pollsters are untouched, so explicit toggles
// persist across reloads until the next bulk action.
func (m *Manager) Sync(known []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keep := toSet(known)
	for name := range m.included {
		if _, ok := keep[name]; !ok {
			delete(m.included, name)
		}
	}
	for _, name := range known {
		if _, ok := m.included[name]; ok {
			continue
		}
		switch m.rule {
		case RuleNone:
			m.included[name] = false
		case RuleCurated:
			_, listed := m.curated[name]
			m.included[name] = listed
		default:
			m.included[name] = true
		}
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
