// internal/game/game_test.go
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tripeaks/internal/deck"
	"github.com/jason-s-yu/tripeaks/internal/layout"
	"github.com/jason-s-yu/tripeaks/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects events instead of rendering them.
type recorder struct {
	mu     sync.Mutex
	events []GameEvent
}

func (r *recorder) OnEvent(ev GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *recorder) all() []GameEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]GameEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) types() []GameEventType {
	var out []GameEventType
	for _, ev := range r.all() {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) count(t GameEventType) int {
	n := 0
	for _, ev := range r.all() {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// values returns the Value of every event of type t, in order.
func (r *recorder) values(t GameEventType) []int {
	var out []int
	for _, ev := range r.all() {
		if ev.Type == t && ev.Value != nil {
			out = append(out, *ev.Value)
		}
	}
	return out
}

func (r *recorder) last() *GameEvent {
	evs := r.all()
	if len(evs) == 0 {
		return nil
	}
	return &evs[len(evs)-1]
}

func seed(v int64) *int64 { return &v }

func nullLogger() *logrus.Logger {
	l, _ := test.NewNullLogger()
	return l
}

func card(r models.Rank, s models.Suit) *models.Card {
	return models.NewCard(r, s)
}

func freeNodes(n int) []layout.Node {
	nodes := make([]layout.Node, n)
	for i := range nodes {
		nodes[i] = layout.Node{ID: fmt.Sprintf("n%d", i)}
	}
	return nodes
}

// rigGame puts an engine into a hand-built position. stock is listed bottom
// first, so its last card is drawn next.
func rigGame(t *testing.T, nodes []layout.Node, tableauCards []*models.Card, stock []*models.Card, waste *models.Card) (*Engine, *recorder) {
	t.Helper()
	e := NewEngine(Config{Layout: layout.Layout{Name: "rig", Nodes: nodes}, Seed: seed(1), Logger: nullLogger()})

	e.gameID = uuid.New()
	e.log = e.logger.WithField("game_id", e.gameID)
	e.tableau.Spawn(nodes, tableauCards)
	e.tableau.RevealUnblocked()
	e.stock = append([]*models.Card(nil), stock...)
	e.waste = waste
	e.state = StatePlaying

	rec := &recorder{}
	e.Subscribe(rec)
	return e, rec
}

func TestMatches(t *testing.T) {
	cases := []struct {
		card, waste models.Rank
		want        bool
	}{
		{models.Six, models.Seven, true},
		{models.Eight, models.Seven, true},
		{models.Five, models.Seven, false},
		{models.Nine, models.Seven, false},
		{models.Seven, models.Seven, false},
		{models.Ace, models.King, true},
		{models.King, models.Ace, true},
		{models.Ace, models.Two, true},
		{models.King, models.Queen, true},
		{models.Queen, models.Ace, false},
		{models.Rank(0), models.Ace, false},
		{models.Rank(14), models.King, false},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("%s on %s", c.card, c.waste), func(t *testing.T) {
			assert.Equal(t, c.want, Matches(c.card, c.waste))
		})
	}
}

func TestEmptyLayoutWinsImmediately(t *testing.T) {
	e := NewEngine(Config{Seed: seed(3), Logger: nullLogger()})
	rec := &recorder{}
	e.Subscribe(rec)

	require.NoError(t, e.StartNewGame())

	assert.Equal(t, StateWon, e.State())
	assert.NotNil(t, e.WasteTop(), "the first stock card seeds the waste")
	assert.Equal(t, 51, e.StockCount())
	assert.Equal(t, 0, e.Remaining())
	assert.Equal(t, 1, rec.count(EventGameWon))
	assert.Equal(t, EventGameWon, rec.last().Type)
}

func TestStartNewGameTriPeaks(t *testing.T) {
	e := NewEngine(Config{Layout: layout.TriPeaks(), Seed: seed(11), Logger: nullLogger()})
	rec := &recorder{}
	e.Subscribe(rec)

	require.NoError(t, e.StartNewGame())
	require.Equal(t, StatePlaying, e.State())

	assert.Equal(t, 28, e.Remaining())
	assert.Equal(t, 23, e.StockCount())
	assert.Equal(t, 0, e.Score())
	assert.Equal(t, 0, e.Streak())
	assert.Equal(t, 10, rec.count(EventCardRevealed))
	assert.Equal(t, []int{0}, rec.values(EventScoreChanged))
	assert.Equal(t, []int{0}, rec.values(EventStreakChanged))
	assert.Equal(t, EventGameStarted, rec.all()[0].Type)

	for i, ev := range rec.all() {
		assert.Equal(t, i+1, ev.Seq)
		assert.Equal(t, e.GameID(), ev.GameID)
	}

	snap := e.Snapshot()
	require.Len(t, snap.Slots, 28)
	known, playable := 0, 0
	for _, s := range snap.Slots {
		require.NotNil(t, s.Card)
		if s.Card.Known {
			known++
		} else {
			assert.Empty(t, s.Card.Rank, "face-down cards are obfuscated")
		}
		if s.Playable {
			playable++
		}
	}
	assert.Equal(t, 10, known)
	assert.Equal(t, len(e.PlayableCards()), playable)
	assert.Equal(t, "playing", snap.State)
	require.NotNil(t, snap.WasteTop)
	assert.True(t, snap.WasteTop.Known)
}

func TestStockPopsLastDrawnFirst(t *testing.T) {
	e := NewEngine(Config{Layout: layout.TriPeaks(), Seed: seed(5), Logger: nullLogger()})
	require.NoError(t, e.StartNewGame())

	d, err := deck.FromSource(nil, seed(e.DeckSeed()), nil)
	require.NoError(t, err)
	d.Shuffle()
	_, err = d.DrawMany(28)
	require.NoError(t, err)

	rest := d.Cards()
	require.NotNil(t, e.WasteTop())
	assert.Equal(t, rest[0].Code(), e.WasteTop().Code(), "bottom of the leftover deck is drawn to waste first")
}

func TestStreakAndScore(t *testing.T) {
	six, seven, eight, nine := card(models.Six, models.Hearts), card(models.Seven, models.Clubs), card(models.Eight, models.Diamonds), card(models.Nine, models.Clubs)
	e, rec := rigGame(t, freeNodes(4),
		[]*models.Card{six, seven, eight, nine},
		[]*models.Card{card(models.Two, models.Clubs), card(models.Nine, models.Hearts)},
		card(models.Five, models.Spades))

	e.SelectCard(six.ID)
	e.SelectCard(seven.ID)
	e.SelectCard(eight.ID)

	assert.Equal(t, 3, e.Streak())
	assert.Equal(t, 6, e.Score())
	assert.Equal(t, []int{1, 2, 3}, rec.values(EventStreakChanged))
	assert.Equal(t, []int{1, 3, 6}, rec.values(EventScoreChanged))
	assert.Equal(t, 3, rec.count(EventCardSelected))

	e.DrawFromStock()
	assert.Equal(t, 0, e.Streak())
	assert.Equal(t, 6, e.Score(), "drawing never changes the score")
	assert.Equal(t, []int{1, 2, 3, 0}, rec.values(EventStreakChanged))
	assert.Equal(t, models.Nine, e.WasteTop().Rank)
	assert.Equal(t, 1, e.StockCount())
	assert.Equal(t, StatePlaying, e.State())
}

func TestDrawWithZeroStreakEmitsNoStreakChange(t *testing.T) {
	e, rec := rigGame(t, freeNodes(1),
		[]*models.Card{card(models.Two, models.Clubs)},
		[]*models.Card{card(models.Ace, models.Hearts), card(models.Jack, models.Hearts)},
		card(models.Nine, models.Hearts))

	e.DrawFromStock()
	assert.Equal(t, 0, rec.count(EventStreakChanged))
	assert.Equal(t, []GameEventType{EventWasteCardChanged, EventStockCountChanged}, rec.types())
}

func TestIllegalSelectionWithAlternativeIsSilent(t *testing.T) {
	two := card(models.Two, models.Clubs)
	e, rec := rigGame(t, freeNodes(2),
		[]*models.Card{two, card(models.Eight, models.Diamonds)},
		[]*models.Card{card(models.King, models.Spades)},
		card(models.Nine, models.Hearts))

	e.SelectCard(two.ID)

	assert.Equal(t, []GameEventType{EventCardSelected}, rec.types())
	assert.Equal(t, false, rec.last().Payload["played"])
	assert.Equal(t, 1, e.StockCount())
	assert.Equal(t, 2, e.Remaining())
	assert.Equal(t, StatePlaying, e.State())
}

func TestSelectBlockedCardDrawsWhenStuck(t *testing.T) {
	top, base := card(models.Eight, models.Clubs), card(models.Three, models.Diamonds)
	e, rec := rigGame(t,
		[]layout.Node{{ID: "top", BlockedBy: []string{"base"}}, {ID: "base"}},
		[]*models.Card{top, base},
		[]*models.Card{card(models.Queen, models.Hearts), card(models.Four, models.Spades)},
		card(models.Nine, models.Hearts))

	assert.False(t, e.CanPlay(top.ID), "a matching rank is not enough while blocked")

	e.SelectCard(top.ID)

	assert.Equal(t, 2, e.Remaining())
	assert.Equal(t, models.Four, e.WasteTop().Rank, "no legal move, so the stock is drawn")
	assert.Equal(t, []GameEventType{EventWasteCardChanged, EventStockCountChanged, EventCardSelected}, rec.types())
	assert.True(t, e.CanPlay(base.ID))
}

func TestPlayRevealsAndAutoDraws(t *testing.T) {
	top, base := card(models.Five, models.Clubs), card(models.Eight, models.Diamonds)
	e, rec := rigGame(t,
		[]layout.Node{{ID: "top", BlockedBy: []string{"base"}}, {ID: "base"}},
		[]*models.Card{top, base},
		[]*models.Card{card(models.Two, models.Spades), card(models.King, models.Hearts)},
		card(models.Nine, models.Hearts))

	e.SelectSlot("base")

	assert.Equal(t, []GameEventType{
		EventWasteCardChanged,
		EventStreakChanged,
		EventScoreChanged,
		EventCardRevealed,
		EventWasteCardChanged,
		EventStockCountChanged,
		EventStreakChanged,
		EventCardSelected,
	}, rec.types())

	revealed := rec.all()[3]
	require.NotNil(t, revealed.Card)
	assert.Equal(t, top.ID, revealed.Card.ID)
	require.NotNil(t, revealed.Card.Idx)
	assert.Equal(t, 0, *revealed.Card.Idx)

	assert.Equal(t, 1, e.Score())
	assert.Equal(t, 0, e.Streak())
	assert.Equal(t, models.King, e.WasteTop().Rank)
}

func TestLostFiresOnce(t *testing.T) {
	two := card(models.Two, models.Clubs)
	e, rec := rigGame(t, freeNodes(1),
		[]*models.Card{two},
		[]*models.Card{card(models.Five, models.Diamonds)},
		card(models.Nine, models.Hearts))

	e.SelectCard(two.ID)

	require.Equal(t, StateLost, e.State())
	assert.Equal(t, 1, rec.count(EventGameLost))
	assert.Equal(t, EventCardSelected, rec.last().Type)

	rec.clear()
	e.SelectCard(two.ID)
	e.DrawFromStock()
	e.ResumeGame()
	e.PauseGame()
	assert.Empty(t, rec.all(), "terminal games ignore input")
	assert.Equal(t, StateLost, e.State())
}

func TestEmptyStockDrawLoses(t *testing.T) {
	e, rec := rigGame(t, freeNodes(1),
		[]*models.Card{card(models.Two, models.Clubs)},
		nil,
		card(models.Nine, models.Hearts))

	e.DrawFromStock()

	assert.Equal(t, []int{0}, rec.values(EventStockCountChanged))
	assert.Equal(t, StateLost, e.State())
	assert.Equal(t, 1, rec.count(EventGameLost))
}

func TestWinOnLastCard(t *testing.T) {
	eight := card(models.Eight, models.Diamonds)
	e, rec := rigGame(t, freeNodes(1),
		[]*models.Card{eight},
		[]*models.Card{card(models.Two, models.Spades)},
		card(models.Nine, models.Hearts))

	e.SelectCard(eight.ID)

	assert.Equal(t, StateWon, e.State())
	assert.Equal(t, 1, rec.count(EventGameWon))
	assert.Equal(t, 0, rec.count(EventGameLost))
	assert.Equal(t, 1, e.StockCount(), "winning does not draw")
	assert.Equal(t, EventCardSelected, rec.last().Type)
	assert.Equal(t, true, rec.last().Payload["played"])
}

func TestUnknownSelectionsEmitNothing(t *testing.T) {
	eight := card(models.Eight, models.Diamonds)
	e, rec := rigGame(t, freeNodes(2),
		[]*models.Card{eight, card(models.Seven, models.Clubs)},
		[]*models.Card{card(models.Two, models.Spades)},
		card(models.Nine, models.Hearts))

	e.SelectCard(uuid.New())
	e.SelectSlot("nope")
	e.SelectIndex(7)
	assert.Empty(t, rec.all())

	e.SelectCard(eight.ID)
	rec.clear()
	e.SelectCard(eight.ID)
	assert.Empty(t, rec.all(), "a removed card is no longer a tableau occupant")
}

func TestPauseAndResume(t *testing.T) {
	eight := card(models.Eight, models.Diamonds)
	e, rec := rigGame(t, freeNodes(2),
		[]*models.Card{eight, card(models.Two, models.Clubs)},
		[]*models.Card{card(models.Two, models.Spades)},
		card(models.Nine, models.Hearts))

	e.PauseGame()
	e.PauseGame()
	require.Equal(t, StatePaused, e.State())

	e.SelectCard(eight.ID)
	e.DrawFromStock()
	assert.Equal(t, []GameEventType{EventGamePaused}, rec.types())
	assert.Equal(t, 2, e.Remaining())

	e.ResumeGame()
	require.Equal(t, StatePlaying, e.State())
	e.SelectCard(eight.ID)
	assert.Equal(t, 1, e.Remaining())
	assert.Equal(t, 1, rec.count(EventGameResumed))
}

func TestResumeKeepsTerminalState(t *testing.T) {
	eight := card(models.Eight, models.Diamonds)
	e, _ := rigGame(t, freeNodes(1), []*models.Card{eight}, nil, card(models.Nine, models.Hearts))

	e.SelectCard(eight.ID)
	require.Equal(t, StateWon, e.State())

	e.ResumeGame()
	assert.Equal(t, StateWon, e.State())
}

// playOut drives the engine greedily until it stops playing.
func playOut(t *testing.T, e *Engine) {
	t.Helper()
	for i := 0; i < 500 && e.State() == StatePlaying; i++ {
		if moves := e.PlayableCards(); len(moves) > 0 {
			e.SelectCard(moves[0].Card.ID)
			continue
		}
		e.DrawFromStock()
	}
	require.True(t, e.State().Terminal(), "greedy play always ends a game")
}

func TestRestartResetsEverything(t *testing.T) {
	e := NewEngine(Config{Layout: layout.TriPeaks(), Seed: seed(21), Logger: nullLogger()})
	rec := &recorder{}
	e.Subscribe(rec)

	require.NoError(t, e.StartNewGame())
	first := e.GameID()
	playOut(t, e)

	rec.clear()
	require.NoError(t, e.RestartGame())

	assert.NotEqual(t, first, e.GameID())
	assert.Equal(t, StatePlaying, e.State())
	assert.Equal(t, 0, e.Score())
	assert.Equal(t, 0, e.Streak())
	assert.Equal(t, 23, e.StockCount())
	assert.Equal(t, 28, e.Remaining())
	assert.Equal(t, 1, rec.all()[0].Seq)

	rec.clear()
	slots := e.Slots()
	e.SelectCard(slots[len(slots)-1].Card.ID)
	assert.Equal(t, 1, rec.count(EventCardSelected), "selections are processed again after restart")
}

func TestSeededEnginesAreDeterministic(t *testing.T) {
	deal := func(e *Engine) []string {
		var codes []string
		for _, s := range e.Slots() {
			codes = append(codes, s.Card.Code())
		}
		return append(codes, e.WasteTop().Code())
	}

	a := NewEngine(Config{Layout: layout.TriPeaks(), Seed: seed(42), Logger: nullLogger()})
	b := NewEngine(Config{Layout: layout.TriPeaks(), Seed: seed(42), Logger: nullLogger()})

	require.NoError(t, a.StartNewGame())
	require.NoError(t, b.StartNewGame())
	firstDeal := deal(a)
	assert.Equal(t, firstDeal, deal(b))

	playOut(t, a)
	playOut(t, b)
	assert.Equal(t, a.Score(), b.Score())
	assert.Equal(t, a.State(), b.State())

	require.NoError(t, a.RestartGame())
	require.NoError(t, b.RestartGame())
	assert.Equal(t, deal(a), deal(b))
	assert.NotEqual(t, firstDeal, deal(a), "each game gets its own deck seed")
}

func TestTooManyNodesIsAConstructionError(t *testing.T) {
	e := NewEngine(Config{Layout: layout.Layout{Nodes: freeNodes(53)}, Seed: seed(1), Logger: nullLogger()})
	err := e.StartNewGame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, deck.ErrInsufficientCards))
	assert.Equal(t, StateIdle, e.State())

	e.SelectIndex(0)
	e.DrawFromStock()
	assert.Equal(t, StateIdle, e.State())
}

func TestFailedRestartKeepsPreviousGame(t *testing.T) {
	e := NewEngine(Config{Layout: layout.TriPeaks(), Seed: seed(4), Logger: nullLogger()})
	require.NoError(t, e.StartNewGame())
	first := e.GameID()
	before := e.Snapshot()

	e.layout = layout.Layout{Nodes: freeNodes(53)}
	err := e.RestartGame()
	require.ErrorIs(t, err, deck.ErrInsufficientCards)

	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, first, e.GameID())
	snap := e.Snapshot()
	assert.Equal(t, first, snap.GameID)
	assert.Equal(t, before.Slots, snap.Slots)
	assert.Equal(t, before.StockCount, snap.StockCount)
}

func TestFullTableauReportsStockOnce(t *testing.T) {
	e := NewEngine(Config{Layout: layout.Layout{Nodes: freeNodes(52)}, Seed: seed(6), Logger: nullLogger()})
	rec := &recorder{}
	e.Subscribe(rec)

	require.NoError(t, e.StartNewGame())

	assert.Equal(t, []int{0}, rec.values(EventStockCountChanged))
	assert.Equal(t, StateLost, e.State())
	assert.Nil(t, e.WasteTop())
	assert.Equal(t, 1, rec.count(EventGameLost))
	assert.Equal(t, EventGameLost, rec.last().Type)

	rec.clear()
	e.DrawFromStock()
	assert.Empty(t, rec.all(), "lost games ignore draws")
}

func TestSlotAccessorsReturnCopies(t *testing.T) {
	eight := card(models.Eight, models.Diamonds)
	e, _ := rigGame(t, freeNodes(2),
		[]*models.Card{eight, card(models.Two, models.Clubs)},
		nil,
		card(models.Nine, models.Hearts))

	playable := e.PlayableCards()
	require.Len(t, playable, 1)
	playable[0].Card.Rank = models.Two

	slots := e.Slots()
	require.Len(t, slots, 2)
	slots[1].Card.Rank = models.Ten

	assert.Equal(t, models.Eight, eight.Rank)
	assert.True(t, e.CanPlay(eight.ID))
	again := e.Slots()
	assert.Equal(t, models.Eight, again[0].Card.Rank)
	assert.Equal(t, models.Two, again[1].Card.Rank)
	assert.Equal(t, "Two", e.Snapshot().Slots[1].Card.Rank)
}

func TestInvalidCatalogFallsBack(t *testing.T) {
	logger, hook := test.NewNullLogger()
	short := deck.GenerateCanonical()[:40]

	e := NewEngine(Config{Catalog: short, Layout: layout.TriPeaks(), Seed: seed(8), Logger: logger})
	require.NoError(t, e.StartNewGame())

	assert.Equal(t, 23, e.StockCount(), "fallback deck has all 52 cards")
	require.NotNil(t, hook.LastEntry())
	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
			assert.Equal(t, e.GameID(), entry.Data["game_id"])
		}
	}
	assert.True(t, warned)
}

func TestListeners(t *testing.T) {
	logger, hook := test.NewNullLogger()
	e := NewEngine(Config{Seed: seed(2), Logger: logger})

	e.Subscribe(ListenerFunc(func(GameEvent) { panic("boom") }))
	rec := &recorder{}
	unsubscribe := e.Subscribe(rec)

	require.NoError(t, e.StartNewGame())
	assert.NotEmpty(t, rec.all(), "a panicking listener does not starve the others")

	var panics int
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			panics++
		}
	}
	assert.Equal(t, len(rec.all()), panics)

	unsubscribe()
	unsubscribe()
	rec.clear()
	require.NoError(t, e.RestartGame())
	assert.Empty(t, rec.all())
}

func TestCommander(t *testing.T) {
	e := NewEngine(Config{Layout: layout.TriPeaks(), Seed: seed(9), Logger: nullLogger()})
	c := NewCommander(e)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	var startErr error
	require.NoError(t, c.Do(context.Background(), func(e *Engine) { startErr = e.StartNewGame() }))
	require.NoError(t, startErr)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Do(context.Background(), func(e *Engine) { e.DrawFromStock() })
		}()
	}
	wg.Wait()

	stock, err := Query(context.Background(), c, func(e *Engine) int { return e.StockCount() })
	require.NoError(t, err)
	assert.LessOrEqual(t, stock, 23-8+1)

	cancel()
	select {
	case err := <-runErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("commander did not stop")
	}

	err = c.Do(context.Background(), func(*Engine) {})
	assert.ErrorIs(t, err, ErrCommanderStopped)
}
