package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

type Server struct {
	logger   *slog.Logger
	handler  *Handler
	upgrader websocket.Upgrader

	actions map[string]func(ctx context.Context, conn Conn, message *Message) error
}

func New(logger *slog.Logger, manager gameManager) *Server {
	server := &Server{
		logger:  logger.With("component", "ws_server"),
		handler: NewHandler(logger, manager),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},

		actions: make(map[string]func(context.Context, Conn, *Message) error),
	}

	server.actions[ActionNewMove] = server.handleNewMove

	return server
}

// Start - starts WebSocket server and blocks until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Routes(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		that.handler.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Routes - the websocket endpoint, ctx bounds every game handler.
func (that *Server) Routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// upgradeToWebSocket - upgrades the connection and places the player into a game.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeConnection")

	intent, err := intentFromRequest(req)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		// the upgrader has already replied with an HTTP error
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newConn(ws, that.logger)
	go conn.writePump()

	log = log.With("connID", conn.ID())
	log.Info("WebSocket connection established", "createNew", intent.CreateNew, "gameID", intent.GameID)

	if err = that.handler.HandleConnect(ctx, conn, intent); err != nil {
		log.Error("failed to place player", "error", err)
		_ = conn.Close()
	}

	that.handleMessages(ctx, conn)
}

// handleMessages - processes messages from the client until the socket closes.
func (that *Server) handleMessages(ctx context.Context, conn *wsConn) {
	log := that.logger.With("method", "handleMessages", "connID", conn.ID())

	defer func() {
		that.handler.HandleDisconnect(ctx, conn)
		_ = conn.Close()
	}()

	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			} else {
				log.Info("connection closed")
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		action, ok := that.actions[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			continue
		}

		if err = action(ctx, conn, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

func (that *Server) handleNewMove(ctx context.Context, conn Conn, message *Message) error {
	// a payload that is not a string is handled like any other malformed move
	var move string
	if err := json.Unmarshal(message.Payload, &move); err != nil {
		that.logger.Debug("move payload is not a string", "connID", conn.ID(), "error", err)
	}

	return that.handler.HandleMove(ctx, conn, move)
}

// intentFromRequest - reads the join intent from the query string.
func intentFromRequest(req *http.Request) (Intent, error) {
	query := req.URL.Query()

	intent := Intent{GameID: query.Get("gameId")}

	if raw := query.Get("createNew"); raw != "" {
		createNew, err := strconv.ParseBool(raw)
		if err != nil {
			return Intent{}, fmt.Errorf("invalid createNew value %q", raw)
		}
		intent.CreateNew = createNew
	}

	return intent, nil
}
