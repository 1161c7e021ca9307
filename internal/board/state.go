package board

import (
	"sync"

	"factboard/api/internal/category"
	"factboard/api/internal/store"
)

// Snapshot is a copy of the state at one instant.
type Snapshot struct {
	CurrentCategory string
	Facts           []store.Fact
	IsLoading       bool
	ShowForm        bool
}

// State owns everything the board renders. Each method is one atomic
// transition. Facts keep the order they were fetched in; votes and
// submissions never re-rank them.
type State struct {
	mu              sync.RWMutex
	currentCategory string
	facts           []store.Fact
	isLoading       bool
	showForm        bool
	retrievalSeq    uint64
}

func NewState() *State {
	return &State{
		currentCategory: category.All,
		facts:           []store.Fact{},
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		CurrentCategory: s.currentCategory,
		Facts:           cloneFacts(s.facts),
		IsLoading:       s.isLoading,
		ShowForm:        s.showForm,
	}
}

func (s *State) Facts() []store.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFacts(s.facts)
}

func (s *State) Fact(id int64) (store.Fact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.facts {
		if item.ID == id {
			return item, true
		}
	}
	return store.Fact{}, false
}

func (s *State) CurrentCategory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentCategory
}

func (s *State) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLoading
}

func (s *State) ShowForm() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showForm
}

// ReplaceFacts swaps the whole collection, including for an empty result.
func (s *State) ReplaceFacts(facts []store.Fact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(facts)
}

func (s *State) replaceLocked(facts []store.Fact) {
	if len(facts) > store.MaxFacts {
		facts = facts[:store.MaxFacts]
	}
	s.facts = cloneFacts(facts)
}

// PrependFact puts item at the front. The tail is dropped if the collection
// would grow past store.MaxFacts.
func (s *State) PrependFact(item store.Fact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]store.Fact, 0, len(s.facts)+1)
	next = append(next, item)
	next = append(next, s.facts...)
	if len(next) > store.MaxFacts {
		next = next[:store.MaxFacts]
	}
	s.facts = next
}

// ReplaceFactByID swaps the element with item.ID in place and reports
// whether one was found.
func (s *State) ReplaceFactByID(item store.Fact) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.facts {
		if s.facts[i].ID == item.ID {
			next := cloneFacts(s.facts)
			next[i] = item
			s.facts = next
			return true
		}
	}
	return false
}

func (s *State) SetLoading(loading bool) {
	s.mu.Lock()
	s.isLoading = loading
	s.mu.Unlock()
}

func (s *State) SetFormVisible(visible bool) {
	s.mu.Lock()
	s.showForm = visible
	s.mu.Unlock()
}

// ToggleForm flips form visibility and returns the new value.
func (s *State) ToggleForm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showForm = !s.showForm
	return s.showForm
}

func (s *State) SetCategory(name string) {
	s.mu.Lock()
	s.currentCategory = name
	s.mu.Unlock()
}

// beginRetrieval issues a new retrieval token for the current category and
// raises the loading flag.
func (s *State) beginRetrieval() (uint64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retrievalSeq++
	s.isLoading = true
	return s.retrievalSeq, s.currentCategory
}

// finishRetrieval applies a retrieval outcome if token is still the latest.
// A nil facts slice leaves the collection untouched. It reports whether the
// outcome was applied.
func (s *State) finishRetrieval(token uint64, facts []store.Fact) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.retrievalSeq {
		return false
	}
	if facts != nil {
		s.replaceLocked(facts)
	}
	s.isLoading = false
	return true
}

func cloneFacts(facts []store.Fact) []store.Fact {
	out := make([]store.Fact, len(facts))
	copy(out, facts)
	return out
}
