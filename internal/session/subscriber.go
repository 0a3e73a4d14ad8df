// internal/session/subscriber.go
package session

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// sendBufferSize bounds the per-connection outbound queue. A subscriber that
// falls this far behind starts dropping frames; the next full snapshot makes
// it whole again.
const sendBufferSize = 64

// Subscriber is one connection's subscription to a room's snapshot stream.
// The session layer only writes to its send channel; the owning connection
// handler drains it.
type Subscriber struct {
	ID string

	// RoomID and PlayerID record which seat the connection last joined, so a
	// close detaches from the right room. They are written only while the
	// connection's own goroutine routes a join.
	RoomID   string
	PlayerID string

	send   chan []byte
	logger *logrus.Logger
}

// NewSubscriber creates a subscriber with a fresh connection id.
func NewSubscriber(logger *logrus.Logger) *Subscriber {
	return &Subscriber{
		ID:     uuid.NewString(),
		send:   make(chan []byte, sendBufferSize),
		logger: logger,
	}
}

// Send exposes the outbound frame channel for the connection's write loop.
func (s *Subscriber) Send() <-chan []byte { return s.send }

// TrySend queues a frame without blocking. A full buffer drops the frame;
// broadcast is fire-and-forget and must never stall a room's mutation queue.
func (s *Subscriber) TrySend(data []byte) {
	select {
	case s.send <- data:
	default:
		s.logger.Warnf("subscriber %s send buffer full, dropping frame", s.ID)
	}
}
