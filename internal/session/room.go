// internal/session/room.go
package session

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/skirmish/internal/archive"
	"github.com/jason-s-yu/skirmish/internal/cache"
	"github.com/jason-s-yu/skirmish/internal/game"
	"github.com/jason-s-yu/skirmish/internal/protocol"
)

type intentKind int

const (
	intentJoin intentKind = iota
	intentMulligan
	intentPlay
	intentPass
	intentRestart
	intentAdvanceRound
	intentUnsubscribe
	intentStop
)

// intent is one unit of work on a room's serialized queue. from is the
// submitting connection (nil for internal intents) and is the only place a
// validation error is ever reported to.
type intent struct {
	kind intentKind
	from *Subscriber

	playerID string
	nickname string
	avatar   string
	authed   bool // join presented a valid seat token

	cardIDs  []string
	cardID   string
	targetID string

	subID string // unsubscribe
}

// Room owns one game and the only goroutine allowed to mutate it. Every
// inbound action is serialized through the intents channel, so two players
// acting in the same instant are applied one after the other: the second
// observes the updated state and fails validation instead of racing.
type Room struct {
	id     string
	game   *game.Game
	logger *logrus.Logger

	intents chan intent
	done    chan struct{}

	// subs and subPlayers are touched only by the room goroutine.
	subs       map[string]*Subscriber
	subPlayers map[string]string // subscriber id -> player id

	// mu guards the fields below, which are read by the dispatcher's
	// registry operations (listing, janitor) without entering the queue.
	mu         sync.Mutex
	summary    protocol.RoomSummary
	connCount  int
	emptySince time.Time

	roundEndDelay time.Duration
	tokenFn       func(playerID, roomID string) (string, error)
	archiveStore  *archive.Store
	feed          *cache.Feed
}

func newRoom(id string, rng *rand.Rand, d *Dispatcher) *Room {
	r := &Room{
		id:            id,
		game:          game.New(id, rng),
		logger:        d.logger,
		intents:       make(chan intent, 32),
		done:          make(chan struct{}),
		subs:          make(map[string]*Subscriber),
		subPlayers:    make(map[string]string),
		emptySince:    time.Now(),
		roundEndDelay: d.roundEndDelay,
		tokenFn:       d.tokenFn,
		archiveStore:  d.archiveStore,
		feed:          d.feed,
	}
	r.updateSummary()
	go r.run()
	return r
}

// enqueue submits an intent unless the room has stopped. A false return
// means the room is gone and the caller should treat it as not found.
func (r *Room) enqueue(it intent) bool {
	select {
	case r.intents <- it:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) run() {
	for {
		select {
		case <-r.done:
			return
		case it := <-r.intents:
			r.handle(it)
		}
	}
}

func (r *Room) handle(it intent) {
	switch it.kind {
	case intentJoin:
		r.handleJoin(it)

	case intentMulligan:
		r.applyAction(it, "mulligan", func() error {
			return r.game.Mulligan(it.playerID, it.cardIDs)
		})

	case intentPlay:
		r.applyAction(it, "play_card", func() error {
			return r.game.PlayCard(it.playerID, it.cardID, it.targetID)
		})

	case intentPass:
		r.applyAction(it, "pass", func() error {
			return r.game.Pass(it.playerID)
		})

	case intentRestart:
		r.applyAction(it, "restart_game", func() error {
			return r.game.Restart(it.playerID)
		})

	case intentAdvanceRound:
		// A stale timer can fire after a restart already moved the phase;
		// that is not an error, just a no-op.
		if err := r.game.AdvanceRound(); err != nil {
			r.logger.Debugf("room %s: skipped round advance: %v", r.id, err)
			return
		}
		r.broadcast("advance_round", "")

	case intentUnsubscribe:
		delete(r.subs, it.subID)
		delete(r.subPlayers, it.subID)
		r.updateSummary()

	case intentStop:
		r.archiveFinal()
		close(r.done)
	}
}

// handleJoin seats or reconnects a player and subscribes the connection.
// A seat whose player id is already live on another connection can only be
// reclaimed with a valid seat token.
func (r *Room) handleJoin(it intent) {
	if r.game.HasPlayer(it.playerID) && !it.authed {
		for _, pid := range r.subPlayers {
			if pid == it.playerID {
				r.reply(it.from, protocol.NewError("seat already connected"))
				return
			}
		}
	}

	rejoined, err := r.game.Join(it.playerID, it.nickname, it.avatar)
	if err != nil {
		r.replyErr(it.from, err)
		return
	}

	r.subs[it.from.ID] = it.from
	r.subPlayers[it.from.ID] = it.playerID
	r.updateSummary()

	token, err := r.tokenFn(it.playerID, r.id)
	if err != nil {
		r.logger.Warnf("room %s: failed to mint seat token for %s: %v", r.id, it.playerID, err)
	}
	r.reply(it.from, protocol.NewJoined(r.id, it.playerID, token))

	if rejoined {
		// Reconnection mutates nothing; only the returning client needs the
		// current snapshot.
		if data, ok := r.marshalSnapshot(); ok {
			it.from.TrySend(data)
		}
		return
	}
	r.broadcast("join_game", it.playerID)
}

// applyAction runs one validated mutation. Failure reaches only the
// submitting connection; success is broadcast to the whole room and may
// schedule follow-up phase work.
func (r *Room) applyAction(it intent, actionType string, fn func() error) {
	if err := fn(); err != nil {
		r.replyErr(it.from, err)
		return
	}
	r.broadcast(actionType, it.playerID)

	switch r.game.Phase {
	case game.PhaseRoundEnd:
		time.AfterFunc(r.roundEndDelay, func() {
			r.enqueue(intent{kind: intentAdvanceRound})
		})
	case game.PhaseGameEnd:
		r.archiveFinal()
	}
}

// broadcast marshals the snapshot once and fans it out to every subscriber.
// Writes are non-blocking; a slow client drops frames, never play.
func (r *Room) broadcast(actionType, actorID string) {
	data, ok := r.marshalSnapshot()
	if !ok {
		return
	}
	for _, sub := range r.subs {
		sub.TrySend(data)
	}
	r.updateSummary()

	if r.feed != nil {
		snap, err := json.Marshal(r.game.Snapshot())
		if err == nil {
			r.feed.PublishAsync(cache.ActionRecord{
				RoomID:     r.id,
				ActionType: actionType,
				PlayerID:   actorID,
				Timestamp:  time.Now().Unix(),
				Snapshot:   snap,
			})
		}
	}
}

func (r *Room) marshalSnapshot() ([]byte, bool) {
	data, err := json.Marshal(protocol.NewGameStateUpdate(r.game.Snapshot()))
	if err != nil {
		r.logger.Errorf("room %s: failed to marshal snapshot: %v", r.id, err)
		return nil, false
	}
	return data, true
}

// archiveFinal persists the room's outcome. Safe to call more than once; the
// archive upserts.
func (r *Room) archiveFinal() {
	if r.archiveStore == nil {
		return
	}
	st := r.game.Snapshot()
	snap, err := json.Marshal(st)
	if err != nil {
		r.logger.Errorf("room %s: failed to marshal archive snapshot: %v", r.id, err)
		return
	}
	status := "abandoned"
	if r.game.Phase == game.PhaseGameEnd {
		status = "completed"
	}
	roundsWon := make(map[string]int, len(st.Players))
	for id, p := range st.Players {
		roundsWon[id] = p.RoundsWon
	}
	r.archiveStore.RecordMatchAsync(archive.MatchRecord{
		RoomID:    r.id,
		Status:    status,
		Winner:    r.game.Winner(),
		RoundsWon: roundsWon,
		Snapshot:  snap,
	})
}

func (r *Room) reply(sub *Subscriber, msg interface{}) {
	if sub == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Errorf("room %s: failed to marshal reply: %v", r.id, err)
		return
	}
	sub.TrySend(data)
}

func (r *Room) replyErr(sub *Subscriber, err error) {
	r.reply(sub, protocol.NewError(err.Error()))
}

// updateSummary refreshes the fields the dispatcher reads outside the queue.
func (r *Room) updateSummary() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary = protocol.RoomSummary{
		RoomID:      r.id,
		Phase:       r.game.Phase,
		PlayerCount: r.game.PlayerCount(),
		RoundCount:  r.game.RoundCount,
	}
	wasEmpty := r.connCount == 0
	r.connCount = len(r.subs)
	if r.connCount == 0 && !wasEmpty {
		r.emptySince = time.Now()
	}
}

// Summary returns the directory entry for this room.
func (r *Room) Summary() protocol.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// idleFor reports how long the room has had no connected subscribers, or 0
// if any are connected.
func (r *Room) idleFor(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connCount > 0 {
		return 0
	}
	return now.Sub(r.emptySince)
}

// stop asks the room goroutine to archive and shut down.
func (r *Room) stop() {
	r.enqueue(intent{kind: intentStop})
}
