package websocket

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendQueueSize  = 32
)

var (
	ErrConnClosed    = errors.New("connection is closed")
	ErrSendQueueFull = errors.New("send queue is full")
)

// Conn - one participant's channel. Send never blocks on the network.
type Conn interface {
	ID() string
	Send(action string, payload any) error
	Close() error
}

// wsConn - a gorilla connection whose writes all go through a single writer goroutine.
type wsConn struct {
	id     string
	ws     *websocket.Conn
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, logger *slog.Logger) *wsConn {
	id := uuid.NewString()

	return &wsConn{
		id:     id,
		ws:     ws,
		logger: logger.With("connID", id),
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (that *wsConn) ID() string {
	return that.id
}

func (that *wsConn) Send(action string, payload any) error {
	data, err := encodeMessage(action, payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", action, err)
	}

	select {
	case <-that.done:
		return ErrConnClosed
	default:
	}

	select {
	case that.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close - flushes queued messages, then closes the socket.
func (that *wsConn) Close() error {
	that.closeOnce.Do(func() {
		close(that.done)
	})
	return nil
}

// writePump - the only goroutine writing to the socket.
func (that *wsConn) writePump() {
	log := that.logger.With("method", "writePump")

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.ws.Close()
	}()

	for {
		select {
		case data := <-that.send:
			if err := that.write(websocket.TextMessage, data); err != nil {
				log.Error("failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			if err := that.write(websocket.PingMessage, nil); err != nil {
				log.Debug("failed to write ping", "error", err)
				return
			}
		case <-that.done:
			that.flush()
			return
		}
	}
}

func (that *wsConn) flush() {
	for {
		select {
		case data := <-that.send:
			if err := that.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = that.write(websocket.CloseMessage, closeMsg)
			return
		}
	}
}

func (that *wsConn) write(messageType int, data []byte) error {
	if err := that.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.ws.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}
