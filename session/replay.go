package session

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lazharichir/elevens/board"
	"github.com/lazharichir/elevens/events"
)

// ErrReplayMismatch means the recorded history does not fit the board its
// seed deals.
var ErrReplayMismatch = errors.New("event history does not match the dealt board")

// Replay rebuilds a session from its event history: the seed of the latest
// GameStarted redeals the board and every later GroupRemoved is applied in
// order. The live session is not touched.
func (m *Manager) Replay(id string) (View, error) {
	history, createdAt, err := m.history(id)
	if err != nil {
		return View{}, fmt.Errorf("failed to load events: %w", err)
	}

	start := -1
	for i, event := range history {
		if _, ok := event.(events.GameStarted); ok {
			start = i
		}
	}
	if start < 0 {
		return View{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	started := history[start].(events.GameStarted)
	rules, err := board.RulesFor(started.Game)
	if err != nil {
		return View{}, err
	}

	s := &Session{ID: id, Game: rules.Name(), Seed: started.Seed}
	if err := s.deal(rules); err != nil {
		return View{}, err
	}
	if got := s.boardShorts(); !slices.Equal(got, started.Board) {
		return View{}, fmt.Errorf("%w: dealt %v, recorded %v", ErrReplayMismatch, got, started.Board)
	}

	for _, event := range history[start+1:] {
		if err := s.applyEvent(event); err != nil {
			return View{}, err
		}
	}

	s.CreatedAt = createdAt
	return s.view(), nil
}

// history loads the events of a live game under its lock, so it never
// reads part of a batch. Games no longer held are read straight from the
// store.
func (m *Manager) history(id string) ([]events.Event, time.Time, error) {
	e, err := m.lookup(id)
	if err != nil {
		history, err := m.eventStore.LoadEvents(id)
		return history, time.Time{}, err
	}
	defer e.mu.Unlock()
	history, err := m.eventStore.LoadEvents(id)
	return history, e.s.CreatedAt, err
}

func (s *Session) applyEvent(event events.Event) error {
	switch e := event.(type) {
	case events.GroupRemoved:
		return s.applyGroupRemoved(e)
	case events.GameEnded:
		s.status = StatusLost
		if e.Won {
			s.status = StatusWon
		}
	}
	// Slot events follow from GroupRemoved and the seeded deck.
	return nil
}

func (s *Session) applyGroupRemoved(e events.GroupRemoved) error {
	if len(e.Cards) != len(e.Slots) {
		return fmt.Errorf("%w: %d slots but %d cards", ErrReplayMismatch, len(e.Slots), len(e.Cards))
	}
	for i, slot := range e.Slots {
		c, ok := s.board.CardAt(slot)
		if !ok || !c.Matches(e.Cards[i]) {
			return fmt.Errorf("%w: slot %d does not hold %s", ErrReplayMismatch, slot, e.Cards[i].Short())
		}
	}
	if err := s.board.ReplaceSelectedCards(e.Slots); err != nil {
		return err
	}
	s.drainChanges()
	s.plays++
	return nil
}
