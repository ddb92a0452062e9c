package game

import (
	"sync"
	"testing"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/cards"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	return NewManager(newTestEngine(t), zaptest.NewLogger(t), opts...)
}

func TestManagerCreateAndDispatch(t *testing.T) {
	m := newTestManager(t)

	id, state, err := m.CreateGame(2, rules.Beginner)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := m.GetState(id)
	require.NoError(t, err)
	assert.Same(t, state, got)

	next, err := m.Dispatch(id, MovePlayer{PlayerID: "player-0", Destination: "Buda"})
	require.NoError(t, err)
	assert.Equal(t, "Buda", next.Players[0].CurrentCity)
	assert.Equal(t, "Etil", state.Players[0].CurrentCity, "earlier snapshots stay valid")

	got, err = m.GetState(id)
	require.NoError(t, err)
	assert.Same(t, next, got)
}

func TestManagerUnknownGame(t *testing.T) {
	m := newTestManager(t)

	_, err := m.GetState("missing")
	assert.ErrorIs(t, err, ErrGameNotFound)
	_, err = m.Dispatch("missing", EndTurn{})
	assert.ErrorIs(t, err, ErrGameNotFound)
	assert.ErrorIs(t, m.RemoveGame("missing"), ErrGameNotFound)
}

func TestManagerRejectsBadGameParameters(t *testing.T) {
	m := newTestManager(t)
	_, _, err := m.CreateGame(9, rules.Beginner)
	assert.Error(t, err)
	assert.Empty(t, m.ListGames())
}

func TestManagerUndo(t *testing.T) {
	m := newTestManager(t, WithHistoryLimit(2))
	id, start, err := m.CreateGame(2, rules.Beginner)
	require.NoError(t, err)

	_, err = m.Undo(id)
	assert.ErrorIs(t, err, ErrNothingToUndo)

	_, err = m.Dispatch(id, MovePlayer{PlayerID: "player-0", Destination: "Buda"})
	require.NoError(t, err)
	_, err = m.Dispatch(id, MovePlayer{PlayerID: "player-0", Destination: "Pécs"})
	require.NoError(t, err)
	_, err = m.Dispatch(id, MovePlayer{PlayerID: "player-0", Destination: "Szeged"})
	require.NoError(t, err)

	back, err := m.Undo(id)
	require.NoError(t, err)
	assert.Equal(t, "Pécs", back.Players[0].CurrentCity)

	back, err = m.Undo(id)
	require.NoError(t, err)
	assert.Equal(t, "Buda", back.Players[0].CurrentCity)

	_, err = m.Undo(id)
	assert.ErrorIs(t, err, ErrNothingToUndo, "history is capped")
	assert.Equal(t, "Etil", start.Players[0].CurrentCity)
}

func TestManagerUndoKeepsFinishedGamesFinished(t *testing.T) {
	m := newTestManager(t)
	s := newTestState(t, 2)
	s.ActionDeck = []cards.Card{}
	s.ThreatDeck = nil
	id, err := m.AddGame(s)
	require.NoError(t, err)

	lost, err := m.Dispatch(id, EndTurn{})
	require.NoError(t, err)
	require.Equal(t, StatusLost, lost.GameStatus)

	_, err = m.Undo(id)
	assert.ErrorIs(t, err, ErrGameOver)

	got, err := m.GetState(id)
	require.NoError(t, err)
	assert.Same(t, lost, got)
}

func TestManagerIgnoredActionKeepsHistory(t *testing.T) {
	m := newTestManager(t)
	id, start, err := m.CreateGame(2, rules.Beginner)
	require.NoError(t, err)

	same, err := m.Dispatch(id, DrawCards{PlayerID: "player-0", Count: 2})
	require.NoError(t, err)
	assert.Same(t, start, same)

	_, err = m.Undo(id)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestManagerNotifications(t *testing.T) {
	m := newTestManager(t)

	var mu sync.Mutex
	var got []Notification
	done := make(chan struct{}, 8)
	m.SetNotificationHandler(func(n Notification) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		done <- struct{}{}
	})

	id, _, err := m.CreateGame(2, rules.Beginner)
	require.NoError(t, err)
	_, err = m.Dispatch(id, EndTurn{})
	require.NoError(t, err)
	require.NoError(t, m.RemoveGame(id))

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for notification %d", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	seqs := map[string]uint64{}
	for _, n := range got {
		assert.Equal(t, id, n.GameID)
		seqs[n.Type] = n.Seq
	}
	assert.Equal(t, uint64(1), seqs[NotifyGameCreated])
	assert.Equal(t, uint64(2), seqs[NotifyStateChange])
	assert.Equal(t, uint64(3), seqs[NotifyGameRemoved])
}

func TestManagerVersionsFollowChanges(t *testing.T) {
	m := newTestManager(t)
	id, _, err := m.CreateGame(2, rules.Beginner)
	require.NoError(t, err)

	_, seq, err := m.GetVersionedState(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)

	_, err = m.Dispatch(id, DrawCards{PlayerID: "player-0", Count: 2})
	require.NoError(t, err)
	_, seq, _ = m.GetVersionedState(id)
	assert.Equal(t, uint64(1), seq, "ignored actions keep the version")

	_, err = m.Dispatch(id, MovePlayer{PlayerID: "player-0", Destination: "Buda"})
	require.NoError(t, err)
	_, err = m.Undo(id)
	require.NoError(t, err)
	state, seq, err := m.GetVersionedState(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), seq, "undo is a change too")
	assert.Equal(t, "Etil", state.Players[0].CurrentCity)
}

func TestManagerRecordsReplay(t *testing.T) {
	dir := t.TempDir()
	rr := NewReplayRecorder(zaptest.NewLogger(t), dir)
	m := newTestManager(t, WithRecorder(rr))

	id, _, err := m.CreateGame(2, rules.Beginner)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = m.Dispatch(id, EndTurn{})
		require.NoError(t, err)
	}
	require.NoError(t, m.RemoveGame(id))

	replay, err := rr.LoadReplay(id)
	require.NoError(t, err)
	assert.Equal(t, 4, replay.Size())
}

func TestManagerAddGameAndList(t *testing.T) {
	m := newTestManager(t)
	first, _, err := m.CreateGame(3, rules.Normal)
	require.NoError(t, err)

	restored := dealt(t)
	restored.GameStatus = StatusWon
	second, err := m.AddGame(restored)
	require.NoError(t, err)

	_, err = m.AddGame(nil)
	assert.Error(t, err)

	list := m.ListGames()
	require.Len(t, list, 2)
	ids := []string{list[0].GameID, list[1].GameID}
	assert.ElementsMatch(t, []string{first, second}, ids)
	for _, g := range list {
		assert.Equal(t, 3, g.Players)
	}
}

func TestManagerConcurrentDispatch(t *testing.T) {
	m := newTestManager(t)
	id, _, err := m.CreateGame(4, rules.Beginner)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Dispatch(id, EndTurn{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := m.GetState(id)
	require.NoError(t, err)
	assert.Equal(t, 9, s.Turn)
	assert.Equal(t, 0, s.ActivePlayerIndex)
}
