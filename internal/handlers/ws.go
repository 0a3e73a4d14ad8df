// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/skirmish/internal/auth"
	"github.com/jason-s-yu/skirmish/internal/middleware"
	"github.com/jason-s-yu/skirmish/internal/protocol"
	"github.com/jason-s-yu/skirmish/internal/session"
)

// writeTimeout bounds a single frame write to one client.
const writeTimeout = 3 * time.Second

// originPatterns reads the comma-separated ALLOWED_ORIGINS allow-list for the
// websocket handshake. Unset allows any origin.
func originPatterns() []string {
	v := os.Getenv("ALLOWED_ORIGINS")
	if v == "" {
		return []string{"*"}
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// WSHandler upgrades the connection and runs the event stream: a read loop
// decoding typed client messages into dispatcher intents, and a write loop
// draining the subscriber's outbound buffer.
func WSHandler(logger *logrus.Logger, d *session.Dispatcher) http.HandlerFunc {
	origins := originPatterns()
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: origins,
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			logger.Warnf("Client connected with invalid subprotocol: %s", c.Subprotocol())
			c.Close(websocket.StatusPolicyViolation, "Client must use the 'game' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		sub := session.NewSubscriber(logger)
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writeLoop(ctx, c, sub, logger)
		readErr := readLoop(ctx, c, sub, d, logger)

		// The seat stays reserved; only the subscription ends.
		d.Detach(sub)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readLoop decodes frames and routes them until the connection closes.
func readLoop(ctx context.Context, c *websocket.Conn, sub *session.Subscriber, d *session.Dispatcher, logger *logrus.Logger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from %s. Ignoring.", msgType, sub.ID)
			continue
		}

		msg, err := protocol.DecodeClientMessage(data)
		if err != nil {
			logger.Warnf("Invalid message from %s: %v", sub.ID, err)
			sendDirect(sub, protocol.NewError(err.Error()), logger)
			continue
		}

		switch m := msg.(type) {
		case protocol.JoinGame:
			authed := false
			if m.Token != "" {
				pid, rid, err := auth.VerifySeatToken(m.Token)
				if err != nil {
					logger.Warnf("Rejected seat token from %s: %v", sub.ID, err)
				} else {
					authed = pid == m.PlayerID && rid == m.RoomID
				}
			}
			d.Join(sub, m, authed)

		case protocol.ListRooms:
			sendDirect(sub, protocol.NewRoomsList(d.ListRooms()), logger)

		case protocol.Mulligan:
			d.Mulligan(sub, m)

		case protocol.PlayCard:
			d.PlayCard(sub, m)

		case protocol.Pass:
			d.Pass(sub, m)

		case protocol.RestartGame:
			d.Restart(sub, m)
		}
	}
}

// writeLoop drains the subscriber buffer onto the socket. Each write gets
// its own timeout so one stuck client cannot wedge the goroutine forever.
func writeLoop(ctx context.Context, c *websocket.Conn, sub *session.Subscriber, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-sub.Send():
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write to subscriber %s: %v", sub.ID, err)
				return
			}
		}
	}
}

// sendDirect queues a reply that bypasses any room queue (errors, directory
// listings).
func sendDirect(sub *session.Subscriber, msg interface{}, logger *logrus.Logger) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("Failed to marshal direct reply: %v", err)
		return
	}
	sub.TrySend(data)
}
