// internal/session/room_test.go
package session

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/skirmish/internal/game"
	"github.com/jason-s-yu/skirmish/internal/models"
	"github.com/jason-s-yu/skirmish/internal/protocol"
)

// wsMsg is a loose decode target covering every server frame shape.
type wsMsg struct {
	Type     protocol.MessageType   `json:"type"`
	Message  string                 `json:"message"`
	RoomID   string                 `json:"room_id"`
	PlayerID string                 `json:"player_id"`
	Token    string                 `json:"token"`
	State    *game.GameState        `json:"state"`
	Rooms    []protocol.RoomSummary `json:"rooms"`
}

func testDispatcher(t *testing.T, opts ...Option) *Dispatcher {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	base := []Option{
		WithSeedFunc(func() int64 { return 42 }),
		WithTokenFunc(func(playerID, roomID string) (string, error) {
			return "seat:" + playerID + "@" + roomID, nil
		}),
		WithRoundEndDelay(30 * time.Millisecond),
	}
	d := New(logger, append(base, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		d.Shutdown(ctx)
	})
	return d
}

func recv(t *testing.T, sub *Subscriber) wsMsg {
	t.Helper()
	select {
	case data := <-sub.Send():
		var m wsMsg
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return wsMsg{}
	}
}

func recvType(t *testing.T, sub *Subscriber, want protocol.MessageType) wsMsg {
	t.Helper()
	m := recv(t, sub)
	require.Equal(t, want, m.Type, "unexpected frame: %+v", m)
	return m
}

// startPlayingRoom seats two players, submits empty mulligans for both, and
// returns the subscribers along with the first Playing snapshot.
func startPlayingRoom(t *testing.T, d *Dispatcher, roomID string) (*Subscriber, *Subscriber, *game.GameState) {
	t.Helper()
	s1 := NewSubscriber(d.logger)
	s2 := NewSubscriber(d.logger)

	d.Join(s1, protocol.JoinGame{RoomID: roomID, PlayerID: "p1", Nickname: "Alice"}, false)
	recvType(t, s1, protocol.TypeJoined)
	recvType(t, s1, protocol.TypeGameStateUpdate)

	d.Join(s2, protocol.JoinGame{RoomID: roomID, PlayerID: "p2", Nickname: "Bob"}, false)
	recvType(t, s2, protocol.TypeJoined)
	recvType(t, s2, protocol.TypeGameStateUpdate)
	recvType(t, s1, protocol.TypeGameStateUpdate)

	d.Mulligan(s1, protocol.Mulligan{RoomID: roomID, PlayerID: "p1"})
	recvType(t, s1, protocol.TypeGameStateUpdate)
	recvType(t, s2, protocol.TypeGameStateUpdate)

	d.Mulligan(s2, protocol.Mulligan{RoomID: roomID, PlayerID: "p2"})
	m := recvType(t, s1, protocol.TypeGameStateUpdate)
	recvType(t, s2, protocol.TypeGameStateUpdate)

	require.Equal(t, game.PhasePlaying, m.State.Phase)
	require.Equal(t, "p1", m.State.CurrentTurn)
	return s1, s2, m.State
}

func TestJoinFlow(t *testing.T) {
	d := testDispatcher(t)
	s1 := NewSubscriber(d.logger)
	s2 := NewSubscriber(d.logger)

	d.Join(s1, protocol.JoinGame{RoomID: "r1", PlayerID: "p1", Nickname: "Alice"}, false)
	joined := recvType(t, s1, protocol.TypeJoined)
	assert.Equal(t, "r1", joined.RoomID)
	assert.Equal(t, "p1", joined.PlayerID)
	assert.Equal(t, "seat:p1@r1", joined.Token)

	waiting := recvType(t, s1, protocol.TypeGameStateUpdate)
	require.NotNil(t, waiting.State)
	assert.Equal(t, game.PhaseWaiting, waiting.State.Phase)
	assert.Len(t, waiting.State.Players, 1)

	d.Join(s2, protocol.JoinGame{RoomID: "r1", PlayerID: "p2", Nickname: "Bob"}, false)
	recvType(t, s2, protocol.TypeJoined)
	dealt := recvType(t, s2, protocol.TypeGameStateUpdate)
	recvType(t, s1, protocol.TypeGameStateUpdate)

	require.NotNil(t, dealt.State)
	assert.Equal(t, game.PhaseMulligan, dealt.State.Phase)
	assert.Len(t, dealt.State.Players["p1"].Hand, game.HandSize)
	assert.Len(t, dealt.State.Players["p2"].Hand, game.HandSize)
}

func TestThirdSeatRejected(t *testing.T) {
	d := testDispatcher(t)
	_, _, _ = startPlayingRoom(t, d, "r1")

	s3 := NewSubscriber(d.logger)
	d.Join(s3, protocol.JoinGame{RoomID: "r1", PlayerID: "p3", Nickname: "Eve"}, false)
	m := recvType(t, s3, protocol.TypeError)
	assert.Equal(t, game.ErrRoomFull.Error(), m.Message)
}

// Two plays from the same seat submitted in the same instant are serialized
// by the room queue: exactly one lands, the other fails turn validation.
func TestConcurrentPlaysFromOneSeat(t *testing.T) {
	d := testDispatcher(t)
	s1, _, st := startPlayingRoom(t, d, "r1")

	var plains []string
	for _, c := range st.Players["p1"].Hand {
		if c.Ability == models.AbilityNone {
			plains = append(plains, c.ID)
		}
	}
	require.GreaterOrEqual(t, len(plains), 2, "expected plain cards in a 10-card hand")

	var wg sync.WaitGroup
	for _, id := range plains[:2] {
		wg.Add(1)
		go func(cardID string) {
			defer wg.Done()
			d.PlayCard(s1, protocol.PlayCard{RoomID: "r1", PlayerID: "p1", CardID: cardID})
		}(id)
	}
	wg.Wait()

	var errs, updates int
	var last *game.GameState
	for i := 0; i < 2; i++ {
		switch m := recv(t, s1); m.Type {
		case protocol.TypeError:
			errs++
			assert.Equal(t, game.ErrNotYourTurn.Error(), m.Message)
		case protocol.TypeGameStateUpdate:
			updates++
			last = m.State
		default:
			t.Fatalf("unexpected frame type %q", m.Type)
		}
	}
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1, updates)
	require.NotNil(t, last)
	assert.Len(t, last.Players["p1"].Board, 1)
	assert.Equal(t, "p2", last.CurrentTurn)
}

func TestRejectedActionReachesOnlyTheActor(t *testing.T) {
	d := testDispatcher(t)
	s1, s2, st := startPlayingRoom(t, d, "r1")

	// It is p1's turn, so p2's play must bounce.
	d.PlayCard(s2, protocol.PlayCard{RoomID: "r1", PlayerID: "p2", CardID: st.Players["p2"].Hand[0].ID})
	m := recvType(t, s2, protocol.TypeError)
	assert.Equal(t, game.ErrNotYourTurn.Error(), m.Message)

	select {
	case data := <-s1.Send():
		t.Fatalf("bystander received a frame for a rejected action: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSeatHijackRequiresToken(t *testing.T) {
	d := testDispatcher(t)
	_, _, _ = startPlayingRoom(t, d, "r1")

	// p1's connection is still live; an unauthenticated join for the same
	// seat is refused.
	s3 := NewSubscriber(d.logger)
	d.Join(s3, protocol.JoinGame{RoomID: "r1", PlayerID: "p1", Nickname: "Mallory"}, false)
	m := recvType(t, s3, protocol.TypeError)
	assert.Equal(t, "seat already connected", m.Message)

	// With a verified seat token the same reclaim goes through and the new
	// connection is caught up with a private snapshot.
	d.Join(s3, protocol.JoinGame{RoomID: "r1", PlayerID: "p1", Nickname: "Alice"}, true)
	recvType(t, s3, protocol.TypeJoined)
	snap := recvType(t, s3, protocol.TypeGameStateUpdate)
	assert.Equal(t, game.PhasePlaying, snap.State.Phase)
}

func TestReconnectAfterDetach(t *testing.T) {
	d := testDispatcher(t)
	s1, s2, _ := startPlayingRoom(t, d, "r1")

	d.Detach(s1)

	// The seat frees up once the old subscription is gone, so a plain rejoin
	// works without a token. The detach and the rejoin land on the same queue
	// in submission order. Reconnection mutates nothing and only the
	// returning client gets the snapshot.
	s3 := NewSubscriber(d.logger)
	d.Join(s3, protocol.JoinGame{RoomID: "r1", PlayerID: "p1", Nickname: "Alice"}, false)
	recvType(t, s3, protocol.TypeJoined)
	snap := recvType(t, s3, protocol.TypeGameStateUpdate)
	assert.Equal(t, game.PhasePlaying, snap.State.Phase)

	select {
	case data := <-s2.Send():
		t.Fatalf("bystander received a frame for a reconnect: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRoundEndAdvancesAfterDelay(t *testing.T) {
	d := testDispatcher(t)
	s1, s2, _ := startPlayingRoom(t, d, "r1")

	d.Pass(s1, protocol.Pass{RoomID: "r1", PlayerID: "p1"})
	recvType(t, s1, protocol.TypeGameStateUpdate)
	recvType(t, s2, protocol.TypeGameStateUpdate)

	d.Pass(s2, protocol.Pass{RoomID: "r1", PlayerID: "p2"})
	ended := recvType(t, s1, protocol.TypeGameStateUpdate)
	recvType(t, s2, protocol.TypeGameStateUpdate)

	// Neither played a card, so the round is a scoreless tie: the round
	// counts for nobody but the phase is still visibly RoundEnd.
	require.Equal(t, game.PhaseRoundEnd, ended.State.Phase)
	assert.Equal(t, 0, ended.State.Players["p1"].RoundsWon)
	assert.Equal(t, 0, ended.State.Players["p2"].RoundsWon)

	// The room advances itself once the delay elapses.
	next := recvType(t, s1, protocol.TypeGameStateUpdate)
	recvType(t, s2, protocol.TypeGameStateUpdate)
	assert.Equal(t, game.PhasePlaying, next.State.Phase)
	assert.Equal(t, 2, next.State.RoundCount)
	assert.Equal(t, "p2", next.State.CurrentTurn, "lead alternates each round")
}
