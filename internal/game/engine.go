// internal/game/engine.go
package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tripeaks/internal/deck"
	"github.com/jason-s-yu/tripeaks/internal/layout"
	"github.com/jason-s-yu/tripeaks/internal/models"
	"github.com/jason-s-yu/tripeaks/internal/tableau"
	"github.com/sirupsen/logrus"
)

// State is the engine's position in the turn state machine.
type State int

const (
	// StateIdle is the state before the first game is started.
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateWon
	StateLost
)

var stateNames = []string{"idle", "playing", "paused", "won", "lost"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether the state only leaves through a restart.
func (s State) Terminal() bool {
	return s == StateWon || s == StateLost
}

// Config holds what an engine needs from its collaborators. An empty Catalog
// plays with the generated canonical deck.
type Config struct {
	Catalog []*models.Card
	Layout  layout.Layout
	Seed    *int64
	Logger  *logrus.Logger
}

// Engine is the TriPeaks turn state machine. It is the only writer of stock,
// waste, score, streak and state, and it is not safe for concurrent use:
// callers serialize access, for example through a Commander.
type Engine struct {
	catalog []*models.Card
	layout  layout.Layout
	rng     *rand.Rand
	logger  *logrus.Logger
	log     *logrus.Entry

	listeners    []subscription
	nextListener int

	// Per-game state, reset by StartNewGame
	gameID   uuid.UUID
	deckSeed int64
	seq      int
	state    State
	tableau  *tableau.Session
	stock    []*models.Card // top of the stock is the end of the slice
	waste    *models.Card
	score    int
	streak   int
}

type subscription struct {
	id int
	l  Listener
}

// NewEngine builds an idle engine. Call StartNewGame to deal.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}

	catalog := make([]*models.Card, len(cfg.Catalog))
	copy(catalog, cfg.Catalog)

	return &Engine{
		catalog: catalog,
		layout:  cfg.Layout,
		rng:     rand.New(rand.NewSource(seed)),
		logger:  logger,
		log:     logrus.NewEntry(logger),
		tableau: tableau.NewSession(),
	}
}

// Subscribe registers l for every future event. Listeners run synchronously in
// subscription order. The returned func removes l; calling it again is harmless.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	e.nextListener++
	id := e.nextListener
	e.listeners = append(e.listeners, subscription{id: id, l: l})

	return func() {
		for i, s := range e.listeners {
			if s.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// fireEvent stamps ev with the game id and next sequence number and hands it
// to every listener. A panicking listener is logged and skipped.
func (e *Engine) fireEvent(ev GameEvent) {
	e.seq++
	ev.GameID = e.gameID
	ev.Seq = e.seq

	subs := make([]subscription, len(e.listeners))
	copy(subs, e.listeners)
	for _, s := range subs {
		e.deliver(s.l, ev)
	}
}

func (e *Engine) deliver(l Listener, ev GameEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithFields(logrus.Fields{
				"event": ev.Type,
				"seq":   ev.Seq,
				"panic": r,
			}).Error("listener panicked")
		}
	}()
	l.OnEvent(ev)
}

// StartNewGame deals a fresh game. It fails only when the deck cannot cover
// the layout, which is a construction problem rather than a play action. A
// failed deal leaves the previous game id and board in place.
func (e *Engine) StartNewGame() error {
	gameID := uuid.New()
	deckSeed := e.rng.Int63()
	log := e.logger.WithField("game_id", gameID)

	dealt, stock, err := e.deal(deckSeed, log)
	if err != nil {
		e.state = StateIdle
		return err
	}

	e.gameID = gameID
	e.deckSeed = deckSeed
	e.seq = 0
	e.log = log
	e.stock = stock
	e.tableau.Spawn(e.layout.Nodes, dealt)
	e.waste = nil
	e.score = 0
	e.streak = 0
	e.state = StatePlaying

	e.log.WithFields(logrus.Fields{
		"seed":    e.deckSeed,
		"layout":  e.layout.Name,
		"tableau": e.tableau.Remaining(),
		"stock":   len(e.stock),
	}).Debug("game started")

	e.fireEvent(GameEvent{
		Type: EventGameStarted,
		Payload: map[string]interface{}{
			"seed":    e.deckSeed,
			"layout":  e.layout.Name,
			"slots":   e.tableau.Len(),
			"tableau": e.tableau.Remaining(),
		},
	})
	e.fireEvent(GameEvent{Type: EventScoreChanged, Value: intPtr(e.score)})
	e.fireEvent(GameEvent{Type: EventStreakChanged, Value: intPtr(e.streak)})
	e.fireEvent(GameEvent{Type: EventStockCountChanged, Value: intPtr(len(e.stock))})

	e.revealUnblocked()
	// an empty stock was just reported
	if len(e.stock) > 0 {
		e.drawFromStock()
	}
	e.checkEndConditions()
	return nil
}

// deal shuffles a deck for seed and splits it into the tableau cards and the
// stock, bottom first.
func (e *Engine) deal(seed int64, log *logrus.Entry) (dealt, stock []*models.Card, err error) {
	d, err := deck.FromSource(e.catalog, &seed, log)
	if err != nil {
		return nil, nil, fmt.Errorf("build deck: %w", err)
	}
	d.Shuffle()

	if n := e.layout.Len(); n > 0 {
		dealt, err = d.DrawMany(n)
		if err != nil {
			return nil, nil, fmt.Errorf("deal %d tableau cards: %w", n, err)
		}
	}

	stock = make([]*models.Card, 0, d.Count())
	for !d.IsEmpty() {
		c, err := d.Draw()
		if err != nil {
			return nil, nil, fmt.Errorf("fill stock: %w", err)
		}
		stock = append(stock, c)
	}
	return dealt, stock, nil
}

// RestartGame leaves any paused or terminal state and deals a new game.
func (e *Engine) RestartGame() error {
	e.state = StateIdle
	return e.StartNewGame()
}

// SelectCard handles a player choosing the tableau card cardID. Selections
// are ignored unless the game is playing and cardID is on the tableau.
func (e *Engine) SelectCard(cardID uuid.UUID) {
	if e.state != StatePlaying {
		return
	}
	idx, ok := e.tableau.SlotOfCard(cardID)
	if !ok {
		return
	}
	slot, _ := e.tableau.Slot(idx)
	if slot.Removed {
		return
	}

	played := e.tryPlay(idx)
	if !played && !e.HasPlayableMove() {
		e.drawFromStock()
	}

	e.checkEndConditions()

	e.fireEvent(GameEvent{
		Type:    EventCardSelected,
		Card:    buildEventCard(slot.Card, intPtr(idx)),
		Payload: map[string]interface{}{"played": played},
	})
}

// SelectSlot resolves a node id to its card and selects it.
func (e *Engine) SelectSlot(id string) {
	idx, ok := e.tableau.SlotIndex(id)
	if !ok {
		return
	}
	e.SelectIndex(idx)
}

// SelectIndex selects the card in slot i, if there is one.
func (e *Engine) SelectIndex(i int) {
	slot, ok := e.tableau.Slot(i)
	if !ok || slot.Card == nil {
		return
	}
	e.SelectCard(slot.Card.ID)
}

// tryPlay moves the card in slot idx to the waste when the match rule allows.
func (e *Engine) tryPlay(idx int) bool {
	slot, ok := e.tableau.Slot(idx)
	if !ok || !e.canPlaySlot(slot) {
		return false
	}

	if e.tableau.Reveal(idx) {
		e.fireEvent(GameEvent{Type: EventCardRevealed, Card: buildEventCard(slot.Card, intPtr(idx))})
	}
	e.tableau.MarkRemoved(idx)
	e.waste = slot.Card
	e.fireEvent(GameEvent{Type: EventWasteCardChanged, Card: buildEventCard(e.waste, nil)})

	e.streak++
	e.score += e.streak
	e.fireEvent(GameEvent{Type: EventStreakChanged, Value: intPtr(e.streak)})
	e.fireEvent(GameEvent{Type: EventScoreChanged, Value: intPtr(e.score)})

	e.log.WithFields(logrus.Fields{
		"card":   slot.Card.Code(),
		"slot":   slot.Node.ID,
		"streak": e.streak,
		"score":  e.score,
	}).Debug("card played")

	e.revealUnblocked()

	if e.tableau.Remaining() == 0 {
		e.finish(StateWon)
	} else if !e.HasPlayableMove() {
		e.drawFromStock()
	}
	return true
}

// DrawFromStock moves the top stock card to the waste and breaks the streak.
// With an empty stock it only resets the streak.
func (e *Engine) DrawFromStock() {
	if e.state != StatePlaying {
		return
	}
	e.drawFromStock()
	e.checkEndConditions()
}

func (e *Engine) drawFromStock() {
	if len(e.stock) == 0 {
		e.resetStreak()
		e.fireEvent(GameEvent{Type: EventStockCountChanged, Value: intPtr(0)})
		return
	}

	top := len(e.stock) - 1
	e.waste = e.stock[top]
	e.stock[top] = nil
	e.stock = e.stock[:top]

	e.fireEvent(GameEvent{Type: EventWasteCardChanged, Card: buildEventCard(e.waste, nil)})
	e.fireEvent(GameEvent{Type: EventStockCountChanged, Value: intPtr(len(e.stock))})
	e.resetStreak()
}

func (e *Engine) resetStreak() {
	if e.streak == 0 {
		return
	}
	e.streak = 0
	e.fireEvent(GameEvent{Type: EventStreakChanged, Value: intPtr(0)})
}

func (e *Engine) revealUnblocked() {
	for _, idx := range e.tableau.RevealUnblocked() {
		slot, _ := e.tableau.Slot(idx)
		e.fireEvent(GameEvent{Type: EventCardRevealed, Card: buildEventCard(slot.Card, intPtr(idx))})
	}
}

// checkEndConditions runs after every mutating operation.
func (e *Engine) checkEndConditions() {
	if e.state.Terminal() {
		return
	}
	if e.tableau.Remaining() == 0 {
		e.finish(StateWon)
		return
	}
	if len(e.stock) == 0 && !e.HasPlayableMove() {
		e.finish(StateLost)
	}
}

// finish moves to a terminal state once per game.
func (e *Engine) finish(s State) {
	if e.state.Terminal() {
		return
	}
	e.state = s

	ev := EventGameWon
	if s == StateLost {
		ev = EventGameLost
	}
	e.log.WithFields(logrus.Fields{
		"score":     e.score,
		"remaining": e.tableau.Remaining(),
	}).Infof("game %s", s)
	e.fireEvent(GameEvent{
		Type:    ev,
		Value:   intPtr(e.score),
		Payload: map[string]interface{}{"remaining": e.tableau.Remaining()},
	})
}

// PauseGame suppresses player input until ResumeGame.
func (e *Engine) PauseGame() {
	if e.state != StatePlaying {
		return
	}
	e.state = StatePaused
	e.fireEvent(GameEvent{Type: EventGamePaused})
}

// ResumeGame leaves a pause. It never leaves Won or Lost.
func (e *Engine) ResumeGame() {
	if e.state != StatePaused {
		return
	}
	e.state = StatePlaying
	e.fireEvent(GameEvent{Type: EventGameResumed})
}

// CanPlay reports whether cardID sits in an open tableau slot and matches the
// waste-top.
func (e *Engine) CanPlay(cardID uuid.UUID) bool {
	idx, ok := e.tableau.SlotOfCard(cardID)
	if !ok {
		return false
	}
	slot, _ := e.tableau.Slot(idx)
	return e.canPlaySlot(slot)
}

func (e *Engine) canPlaySlot(slot tableau.Slot) bool {
	if slot.Card == nil || slot.Removed || !slot.Unblocked || e.waste == nil {
		return false
	}
	return Matches(slot.Card.Rank, e.waste.Rank)
}

// HasPlayableMove reports whether any tableau card can be played.
func (e *Engine) HasPlayableMove() bool {
	for _, slot := range e.tableau.Active() {
		if e.canPlaySlot(slot) {
			return true
		}
	}
	return false
}

// PlayableCards lists copies of the playable tableau slots in slot order.
func (e *Engine) PlayableCards() []tableau.Slot {
	var out []tableau.Slot
	for _, slot := range e.tableau.Active() {
		if e.canPlaySlot(slot) {
			out = append(out, slot.Clone())
		}
	}
	return out
}

// GameID identifies the current game; it changes on every start.
func (e *Engine) GameID() uuid.UUID { return e.gameID }

// DeckSeed is the shuffle seed the current game was dealt with.
func (e *Engine) DeckSeed() int64 { return e.deckSeed }

func (e *Engine) State() State { return e.state }

func (e *Engine) Score() int { return e.score }

func (e *Engine) Streak() int { return e.streak }

func (e *Engine) StockCount() int { return len(e.stock) }

// Remaining counts cards left on the tableau.
func (e *Engine) Remaining() int { return e.tableau.Remaining() }

func (e *Engine) Layout() layout.Layout { return e.layout }

// WasteTop returns a copy of the waste-top card, or nil before the first draw.
func (e *Engine) WasteTop() *models.Card {
	if e.waste == nil {
		return nil
	}
	c := *e.waste
	return &c
}

// Slots returns copies of the tableau slots and their cards.
func (e *Engine) Slots() []tableau.Slot {
	slots := e.tableau.Slots()
	for i := range slots {
		slots[i] = slots[i].Clone()
	}
	return slots
}
