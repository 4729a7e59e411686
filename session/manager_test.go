package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sanity-io/litter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lazharichir/elevens/board"
	"github.com/lazharichir/elevens/cards"
	"github.com/lazharichir/elevens/events"
	"github.com/lazharichir/elevens/store"
)

type recordedResults struct {
	mu      sync.Mutex
	results []store.Result
	err     error
}

func (r *recordedResults) RecordResult(_ context.Context, res store.Result) (store.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return store.Result{}, r.err
	}
	r.results = append(r.results, res)
	return res, nil
}

func (r *recordedResults) all() []store.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.Result(nil), r.results...)
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *events.InMemoryEventStore) {
	t.Helper()
	es := events.NewInMemoryEventStore()
	return NewManager(es, zap.NewNop().Sugar(), opts...), es
}

func seed(n int64) *int64 { return &n }

func eventNames(t *testing.T, es events.EventStore, id string) []string {
	t.Helper()
	history, err := es.LoadEvents(id)
	require.NoError(t, err)
	names := make([]string, 0, len(history))
	for _, e := range history {
		names = append(names, e.EventName())
	}
	return names
}

// createPlayable deals the first seeded game that has a legal group.
func createPlayable(t *testing.T, m *Manager, game string) View {
	t.Helper()
	for s := int64(1); s < 100; s++ {
		view, err := m.Create(game, seed(s))
		require.NoError(t, err)
		if !view.Status.Finished() {
			return view
		}
	}
	t.Fatalf("no playable %s deal found", game)
	return View{}
}

func playOut(t *testing.T, m *Manager, id string) View {
	t.Helper()
	for {
		view, _, err := m.AutoPlay(id)
		if errors.Is(err, ErrGameOver) {
			v, err := m.Get(id)
			require.NoError(t, err)
			return v
		}
		require.NoError(t, err)
		if view.Status.Finished() {
			return view
		}
	}
}

func TestManager_Create(t *testing.T) {
	tests := []struct {
		game     string
		slots    int
		deckSize int
	}{
		{"elevens", 9, 43},
		{"Thirteens", 10, 42},
	}

	for _, tt := range tests {
		t.Run(tt.game, func(t *testing.T) {
			m, es := newTestManager(t)

			view, err := m.Create(tt.game, seed(7))
			require.NoError(t, err)

			assert.NotEmpty(t, view.ID)
			assert.Equal(t, int64(7), view.Seed)
			assert.Len(t, view.Slots, tt.slots)
			assert.Len(t, view.Occupied(), tt.slots)
			assert.Equal(t, tt.deckSize, view.DeckSize)
			assert.Equal(t, 0, view.Plays)

			names := eventNames(t, es, view.ID)
			require.NotEmpty(t, names)
			assert.Equal(t, "game-started", names[0])
		})
	}
}

func TestManager_CreateUnknownGame(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Create("spider", nil)
	assert.True(t, errors.Is(err, board.ErrUnknownGame))
	assert.Empty(t, m.List())
}

func TestManager_SameSeedSameBoard(t *testing.T) {
	m, _ := newTestManager(t)

	a, err := m.Create("elevens", seed(99))
	require.NoError(t, err)
	b, err := m.Create("elevens", seed(99))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Slots, b.Slots, litter.Sdump(a.Slots, b.Slots))
}

func TestManager_SeedSource(t *testing.T) {
	m, _ := newTestManager(t, WithSeeds(func() int64 { return 1234 }))

	view, err := m.Create("elevens", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), view.Seed)
}

func TestManager_NotFound(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Get("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	_, err = m.Select("missing", []int{0, 1})
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	_, _, err = m.AutoPlay("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	_, err = m.Hint("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	assert.True(t, errors.Is(m.Remove("missing"), ErrSessionNotFound))
}

func TestManager_SelectRejectsBadSelections(t *testing.T) {
	m, es := newTestManager(t)
	view := createPlayable(t, m, "elevens")
	before := eventNames(t, es, view.ID)

	_, err := m.Select(view.ID, []int{0})
	assert.True(t, errors.Is(err, board.ErrIllegalSelection))

	_, err = m.Select(view.ID, []int{0, 9})
	assert.True(t, errors.Is(err, board.ErrSlotOutOfRange))

	_, err = m.Select(view.ID, []int{2, 2})
	assert.True(t, errors.Is(err, board.ErrIllegalSelection))

	after, err := m.Get(view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Slots, after.Slots)
	assert.Equal(t, before, eventNames(t, es, view.ID))
}

func TestManager_SelectHint(t *testing.T) {
	m, es := newTestManager(t)

	for s := int64(1); s <= 20; s++ {
		view, err := m.Create("elevens", seed(s))
		require.NoError(t, err)

		hint, err := m.Hint(view.ID)
		require.NoError(t, err)
		if len(hint) == 0 {
			assert.Equal(t, StatusLost, view.Status)
			continue
		}

		after, err := m.Select(view.ID, hint)
		require.NoError(t, err)
		assert.Equal(t, 1, after.Plays)
		assert.Equal(t, view.DeckSize-len(hint), after.DeckSize)
		for _, i := range hint {
			assert.NotEqual(t, view.Slots[i].Card.Short(), after.Slots[i].Card.Short())
		}

		names := eventNames(t, es, view.ID)
		require.GreaterOrEqual(t, len(names), 2+len(hint))
		assert.Equal(t, "group-removed", names[1])
		for _, n := range names[2 : 2+len(hint)] {
			assert.Equal(t, "slot-refilled", n)
		}

		history, err := es.LoadEvents(view.ID)
		require.NoError(t, err)
		removed := history[1].(events.GroupRemoved)
		assert.False(t, removed.Auto)
		assert.Equal(t, hint, removed.Slots)
		for k, i := range hint {
			assert.True(t, removed.Cards[k].Matches(*view.Slots[i].Card))
		}
		return
	}
	t.Fatal("no seed in 1..20 dealt a playable elevens board")
}

func TestManager_PlayToTheEnd(t *testing.T) {
	for _, game := range board.Games() {
		t.Run(game, func(t *testing.T) {
			results := &recordedResults{}
			m, es := newTestManager(t, WithResults(results))

			var mu sync.Mutex
			var seen []string
			m.AddEventHandler(func(e events.Event) {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, e.EventName())
			})

			view, err := m.Create(game, seed(11))
			require.NoError(t, err)
			final := playOut(t, m, view.ID)

			require.True(t, final.Status.Finished())
			assert.False(t, final.CanPlay)

			_, _, err = m.AutoPlay(view.ID)
			assert.True(t, errors.Is(err, ErrGameOver))
			_, err = m.Select(view.ID, []int{0, 1})
			assert.True(t, errors.Is(err, ErrGameOver))
			_, err = m.Solve(view.ID)
			assert.True(t, errors.Is(err, ErrGameOver))

			recorded := results.all()
			require.Len(t, recorded, 1)
			assert.Equal(t, view.ID, recorded[0].GameID)
			assert.Equal(t, game, recorded[0].Game)
			assert.Equal(t, int64(11), recorded[0].Seed)
			assert.Equal(t, final.Status == StatusWon, recorded[0].Won)
			assert.Equal(t, final.Plays, recorded[0].Plays)
			assert.Equal(t, final.DeckSize+len(final.Occupied()), recorded[0].CardsLeft)

			names := eventNames(t, es, view.ID)
			assert.Equal(t, "game-ended", names[len(names)-1])
			mu.Lock()
			assert.Equal(t, names, seen)
			mu.Unlock()
		})
	}
}

func TestManager_Solve(t *testing.T) {
	m, _ := newTestManager(t)

	view, err := m.Create("thirteens", seed(5))
	require.NoError(t, err)

	solved, err := m.Solve(view.ID)
	require.NoError(t, err)
	assert.True(t, solved.Status.Finished())
	if solved.Status == StatusWon {
		assert.Empty(t, solved.Occupied())
		assert.Equal(t, 0, solved.DeckSize)
	}

	hint, err := m.Hint(view.ID)
	require.NoError(t, err)
	assert.Empty(t, hint)
}

func TestManager_RecordFailureDoesNotFailPlay(t *testing.T) {
	results := &recordedResults{err: errors.New("disk full")}
	m, _ := newTestManager(t, WithResults(results))

	view, err := m.Create("elevens", seed(2))
	require.NoError(t, err)

	solved, err := m.Solve(view.ID)
	if errors.Is(err, ErrGameOver) {
		// dealt stuck
		return
	}
	require.NoError(t, err)
	assert.True(t, solved.Status.Finished())
}

func TestManager_Replay(t *testing.T) {
	for _, game := range board.Games() {
		t.Run(game, func(t *testing.T) {
			m, _ := newTestManager(t)

			view, err := m.Create(game, seed(21))
			require.NoError(t, err)

			// a few moves, then the rest
			for i := 0; i < 3; i++ {
				if _, _, err := m.AutoPlay(view.ID); err != nil {
					break
				}
				live, err := m.Get(view.ID)
				require.NoError(t, err)
				replayed, err := m.Replay(view.ID)
				require.NoError(t, err)
				assert.Equal(t, live, replayed, litter.Sdump(live, replayed))
			}

			playOut(t, m, view.ID)
			live, err := m.Get(view.ID)
			require.NoError(t, err)
			replayed, err := m.Replay(view.ID)
			require.NoError(t, err)
			assert.Equal(t, live, replayed)
		})
	}
}

func TestManager_ReplayDetectsTampering(t *testing.T) {
	m, es := newTestManager(t)

	view, err := m.Create("elevens", seed(21))
	require.NoError(t, err)

	started := events.GameStarted{GameID: view.ID, Game: "elevens", Seed: 22, Board: make([]string, 9)}
	require.NoError(t, es.Append(started))

	_, err = m.Replay(view.ID)
	assert.True(t, errors.Is(err, ErrReplayMismatch))
}

func TestManager_Restart(t *testing.T) {
	m, es := newTestManager(t)

	view, err := m.Create("elevens", seed(1))
	require.NoError(t, err)
	_, _, _ = m.AutoPlay(view.ID)

	restarted, err := m.Restart(view.ID, seed(2))
	require.NoError(t, err)
	assert.Equal(t, view.ID, restarted.ID)
	assert.Equal(t, int64(2), restarted.Seed)
	assert.Equal(t, 0, restarted.Plays)
	assert.Equal(t, 43, restarted.DeckSize)

	fresh, err := m.Create("elevens", seed(2))
	require.NoError(t, err)
	assert.Equal(t, fresh.Slots, restarted.Slots)

	replayed, err := m.Replay(view.ID)
	require.NoError(t, err)
	assert.Equal(t, restarted.Slots, replayed.Slots)

	names := eventNames(t, es, view.ID)
	assert.Contains(t, names[1:], "game-started")
}

func TestManager_ListAndRemove(t *testing.T) {
	m, _ := newTestManager(t)

	a, err := m.Create("elevens", seed(1))
	require.NoError(t, err)
	b, err := m.Create("thirteens", seed(1))
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	require.NoError(t, m.Remove(a.ID))
	list = m.List()
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestManager_ConcurrentPlay(t *testing.T) {
	results := &recordedResults{}
	m, _ := newTestManager(t, WithResults(results))

	view, err := m.Create("thirteens", seed(8))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for {
				if _, _, err := m.AutoPlay(view.ID); err != nil {
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for {
				hint, err := m.Hint(view.ID)
				if err != nil || len(hint) == 0 {
					return
				}
				// another player may have taken these cards already
				if _, err := m.Select(view.ID, hint); errors.Is(err, ErrGameOver) {
					return
				}
			}
		}()
	}
	wg.Wait()

	final, err := m.Get(view.ID)
	require.NoError(t, err)
	assert.True(t, final.Status.Finished())
	assert.Len(t, results.all(), 1)

	replayed, err := m.Replay(view.ID)
	require.NoError(t, err)
	assert.Equal(t, final, replayed)
}

func TestManager_ConcurrentPlayAndRestart(t *testing.T) {
	results := &recordedResults{}
	m, es := newTestManager(t, WithResults(results))

	view := createPlayable(t, m, "elevens")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 40; j++ {
				_, _, _ = m.AutoPlay(view.ID)
			}
		}()
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		for j := int64(1); j <= 5; j++ {
			_, err := m.Restart(view.ID, seed(j))
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			_, err := m.Replay(view.ID)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	live, err := m.Get(view.ID)
	require.NoError(t, err)
	replayed, err := m.Replay(view.ID)
	require.NoError(t, err)
	assert.Equal(t, live, replayed, litter.Sdump(live, replayed))

	ended, recorded := 0, 0
	for _, name := range eventNames(t, es, view.ID) {
		if name == "game-ended" {
			ended++
		}
	}
	for _, r := range results.all() {
		if r.GameID == view.ID {
			recorded++
		}
	}
	assert.Equal(t, ended, recorded)
}

// stallingStore holds back the first GroupRemoved until released.
type stallingStore struct {
	*events.InMemoryEventStore
	once    sync.Once
	held    chan struct{}
	release chan struct{}
}

func (s *stallingStore) Append(event events.Event) error {
	if _, ok := event.(events.GroupRemoved); ok {
		s.once.Do(func() {
			close(s.held)
			<-s.release
		})
	}
	return s.InMemoryEventStore.Append(event)
}

func TestManager_EventsStoredInPlayOrder(t *testing.T) {
	es := &stallingStore{
		InMemoryEventStore: events.NewInMemoryEventStore(),
		held:               make(chan struct{}),
		release:            make(chan struct{}),
	}
	m := NewManager(es, zap.NewNop().Sugar())

	view := createPlayable(t, m, "elevens")

	played := make(chan error, 1)
	go func() {
		_, _, err := m.AutoPlay(view.ID)
		played <- err
	}()
	<-es.held

	restarted := make(chan error, 1)
	go func() {
		_, err := m.Restart(view.ID, seed(99))
		restarted <- err
	}()

	select {
	case err := <-restarted:
		t.Fatalf("restart finished while a play was being stored: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(es.release)
	require.NoError(t, <-played)
	require.NoError(t, <-restarted)

	names := eventNames(t, es, view.ID)
	require.GreaterOrEqual(t, len(names), 3)
	assert.Equal(t, "game-started", names[0])
	assert.Equal(t, "group-removed", names[1])
	last := 0
	for i, name := range names {
		if name == "game-started" {
			last = i
		}
	}
	assert.Greater(t, last, 1, names)

	live, err := m.Get(view.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(99), live.Seed)
	replayed, err := m.Replay(view.ID)
	require.NoError(t, err)
	assert.Equal(t, live, replayed)
}

// slowResults blocks in RecordResult once armed.
type slowResults struct {
	recordedResults
	entered chan struct{}
	release chan struct{}
}

func (r *slowResults) RecordResult(ctx context.Context, res store.Result) (store.Result, error) {
	if r.release != nil {
		r.entered <- struct{}{}
		<-r.release
	}
	return r.recordedResults.RecordResult(ctx, res)
}

func TestManager_SlowRecorderDoesNotBlockGame(t *testing.T) {
	results := &slowResults{}
	m, _ := newTestManager(t, WithResults(results))

	view := createPlayable(t, m, "elevens")
	before := len(results.all())
	results.entered = make(chan struct{}, 1)
	results.release = make(chan struct{})

	solved := make(chan error, 1)
	go func() {
		_, err := m.Solve(view.ID)
		solved <- err
	}()
	<-results.entered

	got := make(chan View, 1)
	go func() {
		v, err := m.Get(view.ID)
		assert.NoError(t, err)
		got <- v
	}()

	select {
	case v := <-got:
		assert.True(t, v.Status.Finished())
	case <-time.After(time.Second):
		t.Fatal("Get waited on the result recorder")
	}

	close(results.release)
	require.NoError(t, <-solved)
	all := results.all()
	require.Len(t, all, before+1)
	assert.Equal(t, view.ID, all[before].GameID)
}

func TestManager_RemoveStopsHistory(t *testing.T) {
	m, es := newTestManager(t)

	view := createPlayable(t, m, "elevens")
	require.NoError(t, m.Remove(view.ID))

	_, _, err := m.AutoPlay(view.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = m.Restart(view.ID, nil)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.Empty(t, eventNames(t, es, view.ID))

	err = m.Remove(view.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestSeedsFrom(t *testing.T) {
	a := SeedsFrom(cards.NewSeededSource(1))
	b := SeedsFrom(cards.NewSeededSource(1))

	for i := 0; i < 5; i++ {
		got := a()
		assert.Equal(t, got, b())
		assert.GreaterOrEqual(t, got, int64(0))
		assert.Less(t, got, int64(1)<<60)
	}
}
