package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lazharichir/elevens/server/connection"
	"github.com/lazharichir/elevens/server/events"
	"github.com/lazharichir/elevens/server/handlers"
	"github.com/lazharichir/elevens/session"
	"github.com/lazharichir/elevens/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ResultsReader serves finished-game statistics. *store.Store implements it.
type ResultsReader interface {
	Stats(ctx context.Context, game string) (store.Stats, error)
	Recent(ctx context.Context, game string, limit int) ([]store.Result, error)
}

type Options struct {
	// AllowedOrigins limits browser origins for CORS and websockets.
	// Empty allows every origin outside production.
	AllowedOrigins []string
	Production     bool
	// EntropyCheck, when set, reports the health of the shuffle source.
	EntropyCheck func() error
}

// Server serves the game API over HTTP and websockets
type Server struct {
	sessions   *session.Manager
	results    ResultsReader
	connMgr    *connection.Manager
	cmdRouter  *handlers.CommandRouter
	dispatcher *events.Dispatcher
	upgrader   websocket.Upgrader
	router     *gin.Engine
	httpServer *http.Server
	opts       Options
	log        *zap.SugaredLogger
}

// NewServer wires a server around a session manager. results may be nil,
// in which case statistics are unavailable.
func NewServer(sessions *session.Manager, results ResultsReader, log *zap.SugaredLogger, opts Options) *Server {
	connMgr := connection.NewManager(log)
	dispatcher := events.NewDispatcher(connMgr, log)
	cmdRouter := handlers.NewCommandRouter(sessions, connMgr, log)

	// Register dispatcher as event handler for every session
	sessions.AddEventHandler(dispatcher.HandleEvent)

	s := &Server{
		sessions:   sessions,
		results:    results,
		connMgr:    connMgr,
		cmdRouter:  cmdRouter,
		dispatcher: dispatcher,
		opts:       opts,
		log:        log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()

	// Connection manager runs until Shutdown
	go connMgr.Start()
	return s
}

func (s *Server) routes() *gin.Engine {
	if s.opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/healthz", s.handleHealth)
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api")
	api.GET("/games", s.handleListGames)
	api.POST("/games", s.handleCreateGame)
	api.GET("/games/:id", s.handleGetGame)
	api.POST("/games/:id/select", s.handleSelect)
	api.POST("/games/:id/play", s.handleAutoPlay)
	api.POST("/games/:id/solve", s.handleSolve)
	api.GET("/games/:id/hint", s.handleHint)
	api.POST("/games/:id/restart", s.handleRestart)
	api.GET("/games/:id/replay", s.handleReplay)
	api.GET("/stats/:game", s.handleStats)

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(s.opts.AllowedOrigins) > 0 {
		cfg.AllowOrigins = s.opts.AllowedOrigins
	} else {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		// Non-browser clients send no Origin.
		return true
	}
	if len(s.opts.AllowedOrigins) == 0 {
		return !s.opts.Production
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debugw("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Infow("starting server", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown disconnects websocket clients and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.connMgr.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleWebSocket handles incoming WebSocket connections
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warnw("error upgrading to websocket", "error", err)
		return
	}

	client := &connection.Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	s.log.Infow("client connected", "remoteAddr", c.Request.RemoteAddr, "clientID", client.ID)

	if !s.connMgr.Join(client) {
		conn.Close()
		return
	}

	go s.writePump(client)
	go s.readPump(client)
}

// readPump reads messages from the WebSocket connection
func (s *Server) readPump(client *connection.Client) {
	defer func() {
		s.connMgr.Leave(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(4096)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warnw("websocket read error", "clientID", client.ID, "error", err)
			}
			break
		}

		if err := s.cmdRouter.HandleCommand(client, message); err != nil {
			s.log.Infow("command failed", "clientID", client.ID, "error", err)
		}
	}
}

// writePump sends messages to the WebSocket connection and keeps it alive with pings
func (s *Server) writePump(client *connection.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Warnw("error writing message", "clientID", client.ID, "error", err)
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
