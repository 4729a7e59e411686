package session

import (
	"time"

	"github.com/lazharichir/elevens/board"
	"github.com/lazharichir/elevens/cards"
)

// Status of a game session
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusLost       Status = "lost"
)

func (s Status) Finished() bool {
	return s == StatusWon || s == StatusLost
}

// Session is one game of Elevens or Thirteens. All access goes through the
// Manager, which holds the session lock.
type Session struct {
	ID        string
	Game      string
	Seed      int64
	CreatedAt time.Time

	board      *board.Board
	status     Status
	plays      int
	changes    []board.SlotChange
	lastActive time.Time
}

func (s *Session) watch() {
	s.board.OnChange(func(c board.SlotChange) {
		s.changes = append(s.changes, c)
	})
}

func (s *Session) drainChanges() []board.SlotChange {
	out := s.changes
	s.changes = nil
	return out
}

// SlotView is one board slot as shown to players. Card is nil for an empty slot.
type SlotView struct {
	Index int         `json:"index"`
	Card  *cards.Card `json:"card,omitempty"`
}

// View is a read-only snapshot of a session.
type View struct {
	ID        string     `json:"id"`
	Game      string     `json:"game"`
	Seed      int64      `json:"seed"`
	Status    Status     `json:"status"`
	Plays     int        `json:"plays"`
	DeckSize  int        `json:"deckSize"`
	CanPlay   bool       `json:"canPlay"`
	Slots     []SlotView `json:"slots"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Occupied returns the indexes of the slots holding a card
func (v View) Occupied() []int {
	var out []int
	for _, s := range v.Slots {
		if s.Card != nil {
			out = append(out, s.Index)
		}
	}
	return out
}

func (s *Session) view() View {
	v := View{
		ID:        s.ID,
		Game:      s.Game,
		Seed:      s.Seed,
		Status:    s.status,
		Plays:     s.plays,
		DeckSize:  s.board.DeckSize(),
		CanPlay:   !s.status.Finished(),
		CreatedAt: s.CreatedAt,
	}
	for i, slot := range s.board.Slots() {
		sv := SlotView{Index: i}
		if c, ok := slot.Card(); ok {
			sv.Card = &c
		}
		v.Slots = append(v.Slots, sv)
	}
	return v
}

func (s *Session) boardShorts() []string {
	out := make([]string, s.board.Size())
	for i := range out {
		if c, ok := s.board.CardAt(i); ok {
			out[i] = c.Short()
		}
	}
	return out
}
