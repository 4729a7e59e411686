package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lazharichir/elevens/server/connection"
	"github.com/lazharichir/elevens/server/events"
	"github.com/lazharichir/elevens/session"
)

// Replies sent only to the client that issued a command.
const (
	ReplyGameState = "game-state"
	ReplyHint      = "hint"
	ReplyUnwatched = "unwatched"
	ReplyError     = "error"
)

var ErrUnknownCommand = errors.New("unknown command type")

type HintReply struct {
	GameID string `json:"gameId"`
	Slots  []int  `json:"slots"`
}

type UnwatchedReply struct {
	GameID string `json:"gameId"`
}

type ErrorReply struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}

// CommandRouter routes incoming commands to the appropriate handler
type CommandRouter struct {
	sessions *session.Manager
	connMgr  *connection.Manager
	log      *zap.SugaredLogger
}

// NewCommandRouter creates a new command router
func NewCommandRouter(sessions *session.Manager, connMgr *connection.Manager, log *zap.SugaredLogger) *CommandRouter {
	return &CommandRouter{
		sessions: sessions,
		connMgr:  connMgr,
		log:      log,
	}
}

// HandleCommand processes an incoming command message. A failed command is
// also reported to the client as an error reply.
func (r *CommandRouter) HandleCommand(client *connection.Client, message []byte) error {
	var baseCmd struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(message, &baseCmd); err != nil {
		r.replyError(client, "", err)
		return err
	}

	err := r.route(client, baseCmd.Name, message)
	if err != nil {
		r.replyError(client, baseCmd.Name, err)
	}
	return err
}

func (r *CommandRouter) route(client *connection.Client, name string, message []byte) error {
	switch name {
	case NewGame{}.Name():
		var cmd NewGame
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleNewGame(client, cmd)

	case SelectCards{}.Name():
		var cmd SelectCards
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleSelectCards(client, cmd)

	case AutoPlay{}.Name():
		var cmd AutoPlay
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleAutoPlay(client, cmd)

	case Hint{}.Name():
		var cmd Hint
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleHint(client, cmd)

	case WatchGame{}.Name():
		var cmd WatchGame
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleWatchGame(client, cmd)

	case UnwatchGame{}.Name():
		var cmd UnwatchGame
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleUnwatchGame(client, cmd)

	case RestartGame{}.Name():
		var cmd RestartGame
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleRestartGame(client, cmd)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

func (r *CommandRouter) handleNewGame(client *connection.Client, cmd NewGame) error {
	view, err := r.sessions.Create(cmd.Game, cmd.Seed)
	if err != nil {
		return err
	}
	// Events of the deal went out before anyone watched; the reply carries the board.
	r.connMgr.WatchGame(client.ID, view.ID)
	return r.reply(client, ReplyGameState, view)
}

func (r *CommandRouter) handleSelectCards(client *connection.Client, cmd SelectCards) error {
	if err := r.requireWatching(client, cmd.GameID); err != nil {
		return err
	}
	view, err := r.sessions.Select(cmd.GameID, cmd.Slots)
	if err != nil {
		return err
	}
	return r.reply(client, ReplyGameState, view)
}

func (r *CommandRouter) handleAutoPlay(client *connection.Client, cmd AutoPlay) error {
	if err := r.requireWatching(client, cmd.GameID); err != nil {
		return err
	}
	view, _, err := r.sessions.AutoPlay(cmd.GameID)
	if err != nil {
		return err
	}
	return r.reply(client, ReplyGameState, view)
}

func (r *CommandRouter) handleHint(client *connection.Client, cmd Hint) error {
	slots, err := r.sessions.Hint(cmd.GameID)
	if err != nil {
		return err
	}
	if slots == nil {
		slots = []int{}
	}
	return r.reply(client, ReplyHint, HintReply{GameID: cmd.GameID, Slots: slots})
}

func (r *CommandRouter) handleWatchGame(client *connection.Client, cmd WatchGame) error {
	view, err := r.sessions.Get(cmd.GameID)
	if err != nil {
		return err
	}
	r.connMgr.WatchGame(client.ID, cmd.GameID)
	return r.reply(client, ReplyGameState, view)
}

func (r *CommandRouter) handleUnwatchGame(client *connection.Client, cmd UnwatchGame) error {
	if err := r.requireWatching(client, cmd.GameID); err != nil {
		return err
	}
	r.connMgr.UnwatchGame(client.ID, cmd.GameID)
	return r.reply(client, ReplyUnwatched, UnwatchedReply{GameID: cmd.GameID})
}

func (r *CommandRouter) handleRestartGame(client *connection.Client, cmd RestartGame) error {
	if err := r.requireWatching(client, cmd.GameID); err != nil {
		return err
	}
	view, err := r.sessions.Restart(cmd.GameID, cmd.Seed)
	if err != nil {
		return err
	}
	return r.reply(client, ReplyGameState, view)
}

func (r *CommandRouter) requireWatching(client *connection.Client, gameID string) error {
	if !r.connMgr.IsWatching(client.ID, gameID) {
		return errors.New("client is not watching this game")
	}
	return nil
}

func (r *CommandRouter) reply(client *connection.Client, name string, payload any) error {
	data, err := events.Encode(name, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s reply: %w", name, err)
	}
	r.connMgr.SendToClient(client.ID, data)
	return nil
}

func (r *CommandRouter) replyError(client *connection.Client, command string, cause error) {
	if err := r.reply(client, ReplyError, ErrorReply{Command: command, Error: cause.Error()}); err != nil {
		r.log.Errorw("failed to send error reply", "clientID", client.ID, "error", err)
	}
}
