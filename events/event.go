package events

// An Event is one recorded change to a game. EventName is the name it
// travels under on the websocket.
type Event interface {
	EventName() string
}

type EventHandler func(event Event)

// scoped events belong to a single game.
type scoped interface {
	gameID() string
}

// GetGameID returns the game an event belongs to, or "" if it has none.
func GetGameID(event Event) string {
	if e, ok := event.(scoped); ok {
		return e.gameID()
	}
	return ""
}
