package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lazharichir/elevens/board"
	"github.com/lazharichir/elevens/cards"
	"github.com/lazharichir/elevens/events"
	"github.com/lazharichir/elevens/store"
)

var (
	ErrSessionNotFound = errors.New("game not found")
	ErrGameOver        = errors.New("game is over")
)

// ResultRecorder persists finished games. *store.Store implements it.
type ResultRecorder interface {
	RecordResult(ctx context.Context, r store.Result) (store.Result, error)
}

// Manager owns every running session and is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	eventStore    events.EventStore
	results       ResultRecorder
	seeds         func() int64
	seedMu        sync.Mutex
	now           func() time.Time
	log           *zap.SugaredLogger
	eventHandlers []events.EventHandler
	handlersMu    sync.RWMutex
}

type entry struct {
	mu      sync.Mutex
	s       *Session
	removed bool

	// notifying hands batches to handlers in the order they were stored.
	notifying sync.Mutex
}

// batch is what one locked operation leaves to publish.
type batch struct {
	events []events.Event
	result *store.Result
}

func (b *batch) add(evs ...events.Event) {
	b.events = append(b.events, evs...)
}

type Option func(*Manager)

// WithResults records every finished game in r.
func WithResults(r ResultRecorder) Option {
	return func(m *Manager) { m.results = r }
}

// WithSeeds sets where seeds come from when Create is not given one.
func WithSeeds(next func() int64) Option {
	return func(m *Manager) { m.seeds = next }
}

// WithClock replaces time.Now for activity tracking.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// SeedsFrom draws seeds from an entropy source.
func SeedsFrom(src cards.Source) func() int64 {
	return func() int64 {
		hi := int64(src.Intn(1 << 30))
		lo := int64(src.Intn(1 << 30))
		return hi<<30 | lo
	}
}

// NewManager creates a session manager. Events are appended to eventStore
// before they reach the registered handlers.
//
// Handlers for a game run one batch at a time and must not play on that
// game themselves.
func NewManager(eventStore events.EventStore, log *zap.SugaredLogger, opts ...Option) *Manager {
	m := &Manager{
		sessions:   make(map[string]*entry),
		eventStore: eventStore,
		seeds:      func() int64 { return time.Now().UnixNano() },
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddEventHandler registers a handler for every event of every session
func (m *Manager) AddEventHandler(handler events.EventHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.eventHandlers = append(m.eventHandlers, handler)
}

// Create deals a new game. A nil seed draws one from the manager's seed source.
func (m *Manager) Create(game string, seed *int64) (View, error) {
	rules, err := board.RulesFor(game)
	if err != nil {
		return View{}, err
	}

	now := m.now()
	s := &Session{
		ID:         uuid.New().String(),
		Game:       rules.Name(),
		CreatedAt:  now.UTC(),
		lastActive: now,
	}
	if seed != nil {
		s.Seed = *seed
	} else {
		s.Seed = m.nextSeed()
	}
	if err := s.deal(rules); err != nil {
		return View{}, err
	}

	e := &entry{s: s}
	e.mu.Lock()
	m.mu.Lock()
	m.sessions[s.ID] = e
	m.mu.Unlock()

	var b batch
	b.add(events.GameStarted{
		GameID: s.ID,
		Game:   s.Game,
		Seed:   s.Seed,
		Board:  s.boardShorts(),
	})
	// A board can be dealt with nothing to remove.
	m.checkEnd(s, &b)
	view := s.view()

	m.log.Infow("game created", "gameID", s.ID, "game", s.Game, "seed", s.Seed)
	m.publish(e, &b)
	return view, nil
}

func (s *Session) deal(rules board.Rules) error {
	b, err := board.New(rules, cards.NewSeededSource(s.Seed))
	if err != nil {
		return err
	}
	s.board = b
	s.status = StatusInProgress
	s.plays = 0
	s.changes = nil
	s.watch()
	return nil
}

// nextSeed serializes the seed source, which need not be safe for concurrent use.
func (m *Manager) nextSeed() int64 {
	m.seedMu.Lock()
	defer m.seedMu.Unlock()
	return m.seeds()
}

// Get returns a snapshot of a session
func (m *Manager) Get(id string) (View, error) {
	var view View
	err := m.with(id, func(s *Session, _ *batch) error {
		view = s.view()
		return nil
	})
	return view, err
}

// List returns every session, oldest first.
func (m *Manager) List() []View {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	views := make([]View, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed {
			views = append(views, e.s.view())
		}
		e.mu.Unlock()
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].ID < views[j].ID
		}
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views
}

// Select removes a player's selection from the board.
func (m *Manager) Select(id string, slots []int) (View, error) {
	var view View
	err := m.with(id, func(s *Session, b *batch) error {
		if s.status.Finished() {
			return ErrGameOver
		}
		removed := s.cardsAt(slots)
		if err := s.board.Play(slots); err != nil {
			return err
		}
		m.afterPlay(s, b, slots, removed, false)
		view = s.view()
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return view, nil
}

// AutoPlay removes the first legal group on the board and returns it.
func (m *Manager) AutoPlay(id string) (View, []int, error) {
	var view View
	var group []int
	err := m.with(id, func(s *Session, b *batch) error {
		if s.status.Finished() {
			return ErrGameOver
		}
		group = s.board.Hint()
		if len(group) == 0 {
			return ErrGameOver
		}
		removed := s.cardsAt(group)
		if err := s.board.ReplaceSelectedCards(group); err != nil {
			return err
		}
		m.afterPlay(s, b, group, removed, true)
		view = s.view()
		return nil
	})
	if err != nil {
		return View{}, nil, err
	}
	return view, group, nil
}

// Hint returns a legal group without playing it, or nil if there is none.
func (m *Manager) Hint(id string) ([]int, error) {
	var group []int
	err := m.with(id, func(s *Session, _ *batch) error {
		group = s.board.Hint()
		return nil
	})
	return group, err
}

// Solve auto-plays until the game ends.
func (m *Manager) Solve(id string) (View, error) {
	var view View
	err := m.with(id, func(s *Session, b *batch) error {
		if s.status.Finished() {
			return ErrGameOver
		}
		for !s.status.Finished() {
			group := s.board.Hint()
			if len(group) == 0 {
				m.checkEnd(s, b)
				break
			}
			removed := s.cardsAt(group)
			if err := s.board.ReplaceSelectedCards(group); err != nil {
				return err
			}
			m.afterPlay(s, b, group, removed, true)
		}
		view = s.view()
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return view, nil
}

// Restart deals the session a new game under a new seed. A game in
// progress is abandoned without a recorded result.
func (m *Manager) Restart(id string, seed *int64) (View, error) {
	var view View
	err := m.with(id, func(s *Session, b *batch) error {
		rules := s.board.Rules()
		if seed != nil {
			s.Seed = *seed
		} else {
			s.Seed = m.nextSeed()
		}
		if err := s.deal(rules); err != nil {
			return err
		}
		b.add(events.GameStarted{
			GameID: s.ID,
			Game:   s.Game,
			Seed:   s.Seed,
			Board:  s.boardShorts(),
		})
		m.checkEnd(s, b)
		view = s.view()
		m.log.Infow("game restarted", "gameID", id, "seed", s.Seed)
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return view, nil
}

// Remove forgets a session and, when the event store supports it, its history.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.mu.Lock()
	m.removeLocked(id, e)
	e.mu.Unlock()
	return nil
}

// RemoveIdle removes every session untouched since before cutoff and
// returns their IDs.
func (m *Manager) RemoveIdle(cutoff time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id, e := range m.sessions {
		e.mu.Lock()
		if e.s.lastActive.Before(cutoff) {
			m.removeLocked(id, e)
			removed = append(removed, id)
		}
		e.mu.Unlock()
	}
	sort.Strings(removed)
	return removed
}

type forgetter interface {
	Forget(gameID string)
}

// removeLocked needs both m.mu and e.mu. Operations already waiting on e
// see it removed and append nothing more to the forgotten history.
func (m *Manager) removeLocked(id string, e *entry) {
	e.removed = true
	delete(m.sessions, id)
	if f, ok := m.eventStore.(forgetter); ok {
		f.Forget(id)
	}
}

// lookup returns the live entry for id, locked.
func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

func (m *Manager) with(id string, fn func(s *Session, b *batch) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.s.lastActive = m.now()

	var b batch
	err = fn(e.s, &b)
	m.publish(e, &b)
	return err
}

func (s *Session) cardsAt(slots []int) []cards.Card {
	out := make([]cards.Card, 0, len(slots))
	for _, i := range slots {
		if c, ok := s.board.CardAt(i); ok {
			out = append(out, c)
		}
	}
	return out
}

// afterPlay turns a completed play into events and ends the game when
// nothing more can be removed.
func (m *Manager) afterPlay(s *Session, b *batch, slots []int, removed []cards.Card, auto bool) {
	s.plays++
	b.add(events.GroupRemoved{
		GameID: s.ID,
		Slots:  append([]int(nil), slots...),
		Cards:  removed,
		Auto:   auto,
	})
	for _, c := range s.drainChanges() {
		if c.Emptied {
			b.add(events.SlotEmptied{GameID: s.ID, Slot: c.Index})
		} else {
			b.add(events.SlotRefilled{GameID: s.ID, Slot: c.Index, Card: c.Dealt})
		}
	}
	m.checkEnd(s, b)
}

func (m *Manager) checkEnd(s *Session, b *batch) {
	if s.status.Finished() || s.board.AnotherPlayIsPossible() {
		return
	}

	won := s.board.GameIsWon()
	s.status = StatusLost
	if won {
		s.status = StatusWon
	}
	left := s.board.DeckSize() + len(s.board.CardIndexes())

	m.log.Infow("game ended", "gameID", s.ID, "game", s.Game, "won", won, "plays", s.plays, "cardsLeft", left)

	if m.results != nil {
		b.result = &store.Result{
			GameID:    s.ID,
			Game:      s.Game,
			Seed:      s.Seed,
			Won:       won,
			Plays:     s.plays,
			CardsLeft: left,
		}
	}
	b.add(events.GameEnded{
		GameID:    s.ID,
		Game:      s.Game,
		Won:       won,
		Plays:     s.plays,
		CardsLeft: left,
	})
}

// publish is called with e.mu held and releases it. Events are stored
// before the unlock so a game's history keeps the order of its plays.
// Handlers and the result recorder run after it.
func (m *Manager) publish(e *entry, b *batch) {
	for _, event := range b.events {
		if err := m.eventStore.Append(event); err != nil {
			m.log.Errorw("failed to store event", "event", event.EventName(), "error", err)
		}
	}
	if len(b.events) == 0 && b.result == nil {
		e.mu.Unlock()
		return
	}

	e.notifying.Lock()
	e.mu.Unlock()
	m.notify(b.events)
	e.notifying.Unlock()

	if b.result != nil {
		m.record(*b.result)
	}
}

func (m *Manager) notify(pending []events.Event) {
	m.handlersMu.RLock()
	handlers := append([]events.EventHandler(nil), m.eventHandlers...)
	m.handlersMu.RUnlock()

	for _, event := range pending {
		for _, handler := range handlers {
			handler(event)
		}
	}
}

func (m *Manager) record(r store.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.results.RecordResult(ctx, r); err != nil {
		m.log.Errorw("failed to record result", "gameID", r.GameID, "error", err)
	}
}
