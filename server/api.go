package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lazharichir/elevens/board"
	"github.com/lazharichir/elevens/session"
	"github.com/lazharichir/elevens/store"
)

type createGameRequest struct {
	Game string `json:"game"`
	Seed *int64 `json:"seed,omitempty"`
}

type selectRequest struct {
	Slots []int `json:"slots"`
}

type restartRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

type playResponse struct {
	Game   session.View `json:"game"`
	Played []int        `json:"played"`
}

type hintResponse struct {
	GameID string `json:"gameId"`
	Slots  []int  `json:"slots"`
}

type statsResponse struct {
	Stats   store.Stats    `json:"stats"`
	WinRate float64        `json:"winRate"`
	Recent  []store.Result `json:"recent"`
}

func writeAPIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "game not found"})
	case errors.Is(err, session.ErrGameOver):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "game is over"})
	case errors.Is(err, board.ErrUnknownGame),
		errors.Is(err, board.ErrSlotOutOfRange),
		errors.Is(err, board.ErrEmptySlot),
		errors.Is(err, board.ErrIllegalSelection):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.opts.EntropyCheck != nil {
		if err := s.opts.EntropyCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "games": len(s.sessions.List()), "clients": s.connMgr.Count()})
}

func (s *Server) handleListGames(c *gin.Context) {
	c.JSON(http.StatusOK, s.sessions.List())
}

func (s *Server) handleCreateGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Game == "" {
		req.Game = "elevens"
	}

	view, err := s.sessions.Create(req.Game, req.Seed)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (s *Server) handleGetGame(c *gin.Context) {
	view, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleSelect(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Slots) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slots are required"})
		return
	}

	view, err := s.sessions.Select(c.Param("id"), req.Slots)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleAutoPlay(c *gin.Context) {
	view, played, err := s.sessions.AutoPlay(c.Param("id"))
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, playResponse{Game: view, Played: played})
}

func (s *Server) handleSolve(c *gin.Context) {
	view, err := s.sessions.Solve(c.Param("id"))
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleHint(c *gin.Context) {
	id := c.Param("id")
	slots, err := s.sessions.Hint(id)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	if slots == nil {
		slots = []int{}
	}
	c.JSON(http.StatusOK, hintResponse{GameID: id, Slots: slots})
}

func (s *Server) handleRestart(c *gin.Context) {
	var req restartRequest
	// The body is optional, and chunked requests carry no length.
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	view, err := s.sessions.Restart(c.Param("id"), req.Seed)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleReplay(c *gin.Context) {
	view, err := s.sessions.Replay(c.Param("id"))
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleStats(c *gin.Context) {
	rules, err := board.RulesFor(c.Param("game"))
	if err != nil {
		writeAPIError(c, err)
		return
	}
	if s.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "results are not recorded"})
		return
	}

	limit := 10
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	stats, err := s.results.Stats(ctx, rules.Name())
	if err != nil {
		s.log.Errorw("failed to load stats", "game", rules.Name(), "error", err)
		writeAPIError(c, err)
		return
	}
	recent, err := s.results.Recent(ctx, rules.Name(), limit)
	if err != nil {
		s.log.Errorw("failed to load results", "game", rules.Name(), "error", err)
		writeAPIError(c, err)
		return
	}
	if recent == nil {
		recent = []store.Result{}
	}
	c.JSON(http.StatusOK, statsResponse{Stats: stats, WinRate: stats.WinRate(), Recent: recent})
}
