// Package page models the dashboard page the controller drives: its tabs,
// the tab-shown notifications and the per-tab summary slots.
package page

import (
	"fmt"
	"sync"

	"github.com/user/extstats-go/internal/models"
)

// Page is what the dashboard controller needs from the hosting page.
type Page interface {
	// ActiveTab returns the id of the tab active when the page loaded, or "".
	ActiveTab() string
	// OnTabShown registers fn to run every time a tab is shown.
	OnTabShown(fn func(tabID string))
	// Title returns the display title of a tab.
	Title(tabID string) string
	// SetSummary writes the summary label of a tab.
	SetSummary(tabID, text string)
}

// ContainerID is the id of the element a tab's chart is rendered into.
func ContainerID(tabID string) string { return tabID + "-container" }

// SummaryID is the id of the element holding a tab's summary label.
func SummaryID(tabID string) string { return tabID + "-value" }

// Static is an in-process Page with a fixed set of tabs.
type Static struct {
	mu        sync.RWMutex
	tabs      []models.Tab
	active    string
	initial   string
	summaries map[string]string
	listeners []func(string)
}

var _ Page = (*Static)(nil)

// NewStatic creates a page for tabs. The first tab flagged Active is the
// initially active one; the others have their flag cleared.
func NewStatic(tabs []models.Tab) *Static {
	s := &Static{
		tabs:      make([]models.Tab, len(tabs)),
		summaries: make(map[string]string),
	}
	copy(s.tabs, tabs)
	for i := range s.tabs {
		if s.tabs[i].Active && s.initial == "" {
			s.initial = s.tabs[i].ID
			continue
		}
		s.tabs[i].Active = false
	}
	s.active = s.initial
	return s
}

func (s *Static) ActiveTab() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initial
}

func (s *Static) OnTabShown(fn func(tabID string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Static) Title(tabID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tabs {
		if t.ID == tabID {
			return t.Title
		}
	}
	return ""
}

func (s *Static) SetSummary(tabID, text string) {
	s.mu.Lock()
	s.summaries[SummaryID(tabID)] = text
	s.mu.Unlock()
}

// Summary returns the label last written for tabID.
func (s *Static) Summary(tabID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.summaries[SummaryID(tabID)]
	return text, ok
}

// Tabs returns a copy of the tabs with the current active flag.
func (s *Static) Tabs() []models.Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Tab, len(s.tabs))
	for i, t := range s.tabs {
		t.Active = t.ID == s.active
		out[i] = t
	}
	return out
}

// Show switches to tabID and notifies the tab-shown listeners. Showing the
// tab that is already active does not notify.
func (s *Static) Show(tabID string) error {
	s.mu.Lock()
	found := false
	for _, t := range s.tabs {
		if t.ID == tabID {
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("unknown tab %q", tabID)
	}
	if s.active == tabID {
		s.mu.Unlock()
		return nil
	}
	s.active = tabID
	listeners := make([]func(string), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(tabID)
	}
	return nil
}
