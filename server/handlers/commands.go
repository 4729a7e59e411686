package handlers

type Command interface {
	Name() string
}

type NewGame struct {
	Game string `json:"game"`
	Seed *int64 `json:"seed,omitempty"`
}

func (c NewGame) Name() string { return "NEW_GAME" }

type SelectCards struct {
	GameID string `json:"gameId"`
	Slots  []int  `json:"slots"`
}

func (c SelectCards) Name() string { return "SELECT_CARDS" }

type AutoPlay struct {
	GameID string `json:"gameId"`
}

func (c AutoPlay) Name() string { return "AUTO_PLAY" }

type Hint struct {
	GameID string `json:"gameId"`
}

func (c Hint) Name() string { return "HINT" }

type WatchGame struct {
	GameID string `json:"gameId"`
}

func (c WatchGame) Name() string { return "WATCH_GAME" }

type UnwatchGame struct {
	GameID string `json:"gameId"`
}

func (c UnwatchGame) Name() string { return "UNWATCH_GAME" }

type RestartGame struct {
	GameID string `json:"gameId"`
	Seed   *int64 `json:"seed,omitempty"`
}

func (c RestartGame) Name() string { return "RESTART_GAME" }
