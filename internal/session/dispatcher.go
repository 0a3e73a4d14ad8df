// internal/session/dispatcher.go

// Package session owns the set of live rooms and the serialization of every
// inbound action. Each room runs one goroutine draining a private intent
// queue; the registry mapping room ids to rooms carries its own lock,
// disjoint from any room's queue, so joins and listings never contend with
// play inside a room.
package session

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/skirmish/internal/archive"
	"github.com/jason-s-yu/skirmish/internal/auth"
	"github.com/jason-s-yu/skirmish/internal/cache"
	"github.com/jason-s-yu/skirmish/internal/game"
	"github.com/jason-s-yu/skirmish/internal/protocol"
)

const (
	// DefaultGracePeriod is how long an empty room survives before cleanup.
	DefaultGracePeriod = 5 * time.Minute
	// DefaultRoundEndDelay is how long a RoundEnd snapshot stays visible
	// before the next round begins.
	DefaultRoundEndDelay = 3 * time.Second
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithArchive enables match archiving at GameEnd and room teardown.
func WithArchive(s *archive.Store) Option {
	return func(d *Dispatcher) { d.archiveStore = s }
}

// WithFeed enables the historian action feed.
func WithFeed(f *cache.Feed) Option {
	return func(d *Dispatcher) { d.feed = f }
}

// WithGracePeriod overrides how long empty rooms are kept.
func WithGracePeriod(g time.Duration) Option {
	return func(d *Dispatcher) { d.grace = g }
}

// WithRoundEndDelay overrides the pause between rounds.
func WithRoundEndDelay(delay time.Duration) Option {
	return func(d *Dispatcher) { d.roundEndDelay = delay }
}

// WithTokenFunc overrides seat token minting (used by tests).
func WithTokenFunc(fn func(playerID, roomID string) (string, error)) Option {
	return func(d *Dispatcher) { d.tokenFn = fn }
}

// WithSeedFunc overrides the per-room shuffle seed source (used by tests).
func WithSeedFunc(fn func() int64) Option {
	return func(d *Dispatcher) { d.seedFn = fn }
}

// Dispatcher routes client intents to room queues and manages room
// lifecycle: lazy creation on first join, directory listings, and grace
// period cleanup of empty rooms.
type Dispatcher struct {
	logger *logrus.Logger

	mu    sync.Mutex
	rooms map[string]*Room

	grace         time.Duration
	roundEndDelay time.Duration
	tokenFn       func(playerID, roomID string) (string, error)
	seedFn        func() int64
	archiveStore  *archive.Store
	feed          *cache.Feed

	janitorStop chan struct{}
	janitorDone chan struct{}
}

// New builds a Dispatcher with defaults suitable for production.
func New(logger *logrus.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:        logger,
		rooms:         make(map[string]*Room),
		grace:         DefaultGracePeriod,
		roundEndDelay: DefaultRoundEndDelay,
		tokenFn:       auth.CreateSeatToken,
		seedFn:        func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// getOrCreateRoom returns the room for an id, creating it lazily.
func (d *Dispatcher) getOrCreateRoom(roomID string) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	if !ok {
		r = newRoom(roomID, rand.New(rand.NewSource(d.seedFn())), d)
		d.rooms[roomID] = r
		d.logger.Infof("created room %s", roomID)
	}
	return r
}

func (d *Dispatcher) room(roomID string) (*Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	return r, ok
}

// Join routes a join_game intent, creating the room on first sight of the id.
// A connection that joins a different room is unsubscribed from its previous
// room first, so the old room drains and the janitor can sweep it.
func (d *Dispatcher) Join(sub *Subscriber, msg protocol.JoinGame, authed bool) {
	if sub.RoomID != "" && sub.RoomID != msg.RoomID {
		d.Detach(sub)
	}
	sub.RoomID = msg.RoomID
	sub.PlayerID = msg.PlayerID

	r := d.getOrCreateRoom(msg.RoomID)
	ok := r.enqueue(intent{
		kind:     intentJoin,
		from:     sub,
		playerID: msg.PlayerID,
		nickname: msg.Nickname,
		avatar:   msg.Avatar,
		authed:   authed,
	})
	if !ok {
		d.sendErr(sub, game.ErrRoomNotFound)
	}
}

// Mulligan routes a mulligan intent.
func (d *Dispatcher) Mulligan(sub *Subscriber, msg protocol.Mulligan) {
	d.submit(sub, msg.RoomID, intent{
		kind:     intentMulligan,
		from:     sub,
		playerID: msg.PlayerID,
		cardIDs:  msg.CardIDs,
	})
}

// PlayCard routes a play_card intent.
func (d *Dispatcher) PlayCard(sub *Subscriber, msg protocol.PlayCard) {
	d.submit(sub, msg.RoomID, intent{
		kind:     intentPlay,
		from:     sub,
		playerID: msg.PlayerID,
		cardID:   msg.CardID,
		targetID: msg.TargetID,
	})
}

// Pass routes a pass intent.
func (d *Dispatcher) Pass(sub *Subscriber, msg protocol.Pass) {
	d.submit(sub, msg.RoomID, intent{
		kind:     intentPass,
		from:     sub,
		playerID: msg.PlayerID,
	})
}

// Restart routes a restart_game intent.
func (d *Dispatcher) Restart(sub *Subscriber, msg protocol.RestartGame) {
	d.submit(sub, msg.RoomID, intent{
		kind:     intentRestart,
		from:     sub,
		playerID: msg.PlayerID,
	})
}

func (d *Dispatcher) submit(sub *Subscriber, roomID string, it intent) {
	r, ok := d.room(roomID)
	if !ok || !r.enqueue(it) {
		d.sendErr(sub, game.ErrRoomNotFound)
	}
}

// Detach unsubscribes a connection from the room it joined, if any. The seat
// stays reserved; only the subscription ends.
func (d *Dispatcher) Detach(sub *Subscriber) {
	if sub.RoomID == "" {
		return
	}
	if r, ok := d.room(sub.RoomID); ok {
		r.enqueue(intent{kind: intentUnsubscribe, subID: sub.ID})
	}
}

// ListRooms returns the current room directory. It never mutates room state.
func (d *Dispatcher) ListRooms() []protocol.RoomSummary {
	d.mu.Lock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	d.mu.Unlock()

	summaries := make([]protocol.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, r.Summary())
	}
	return summaries
}

// StartJanitor begins periodic cleanup of rooms that have had no connected
// subscribers for the grace period.
func (d *Dispatcher) StartJanitor() {
	if d.janitorStop != nil {
		return
	}
	d.janitorStop = make(chan struct{})
	d.janitorDone = make(chan struct{})

	interval := d.grace / 4
	if interval < time.Second {
		interval = time.Second
	}

	go func() {
		defer close(d.janitorDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-d.janitorStop:
				return
			case now := <-ticker.C:
				d.sweep(now)
			}
		}
	}()
}

// sweep removes and stops every room idle past the grace period.
func (d *Dispatcher) sweep(now time.Time) {
	d.mu.Lock()
	var stale []*Room
	for id, r := range d.rooms {
		if r.idleFor(now) >= d.grace {
			delete(d.rooms, id)
			stale = append(stale, r)
		}
	}
	d.mu.Unlock()

	for _, r := range stale {
		d.logger.Infof("cleaning up idle room %s", r.id)
		r.stop()
	}
}

// Shutdown drains the dispatcher: stops the janitor and every room. Rooms
// archive their final state on the way down.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	if d.janitorStop != nil {
		close(d.janitorStop)
		select {
		case <-d.janitorDone:
		case <-ctx.Done():
		}
	}

	d.mu.Lock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	d.rooms = make(map[string]*Room)
	d.mu.Unlock()

	for _, r := range rooms {
		r.stop()
	}
	for _, r := range rooms {
		select {
		case <-r.done:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) sendErr(sub *Subscriber, err error) {
	if sub == nil {
		return
	}
	data, mErr := json.Marshal(protocol.NewError(err.Error()))
	if mErr != nil {
		d.logger.Errorf("failed to marshal error reply: %v", mErr)
		return
	}
	sub.TrySend(data)
}
