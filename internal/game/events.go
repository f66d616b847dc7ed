// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/tripeaks/internal/models"
)

// GameEventType is an enum-like type for the notifications an engine emits.
type GameEventType string

// --- Event Type Definitions ---
const (
	EventGameStarted       GameEventType = "game_started"
	EventCardRevealed      GameEventType = "card_revealed"
	EventCardSelected      GameEventType = "card_selected" // End of every processed selection, legal or not
	EventStreakChanged     GameEventType = "streak_changed"
	EventScoreChanged      GameEventType = "score_changed"
	EventStockCountChanged GameEventType = "stock_count_changed"
	EventWasteCardChanged  GameEventType = "waste_card_changed"
	EventGamePaused        GameEventType = "game_paused"
	EventGameResumed       GameEventType = "game_resumed"
	EventGameWon           GameEventType = "game_won"
	EventGameLost          GameEventType = "game_lost"
)

// Terminal reports whether the event ends a game.
func (t GameEventType) Terminal() bool {
	return t == EventGameWon || t == EventGameLost
}

// EventCard identifies a card inside an event payload.
type EventCard struct {
	ID   uuid.UUID `json:"id"`
	Rank string    `json:"rank,omitempty"`
	Suit string    `json:"suit,omitempty"`
	Code string    `json:"code,omitempty"`
	Idx  *int      `json:"idx,omitempty"` // Tableau slot; nil for stock/waste cards
}

// GameEvent is one state-change record. Seq starts at 1 for every game.
type GameEvent struct {
	Type   GameEventType `json:"type"`
	GameID uuid.UUID     `json:"game_id"`
	Seq    int           `json:"seq"`
	Card   *EventCard    `json:"card,omitempty"`
	Value  *int          `json:"value,omitempty"` // Streak, score or stock count

	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Listener receives engine events synchronously, in the order they occur.
type Listener interface {
	OnEvent(ev GameEvent)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(ev GameEvent)

// OnEvent calls f(ev).
func (f ListenerFunc) OnEvent(ev GameEvent) {
	f(ev)
}

// buildEventCard converts a card for an event. A nil idx marks a card that is
// not on the tableau.
func buildEventCard(c *models.Card, idx *int) *EventCard {
	if c == nil {
		return nil
	}
	return &EventCard{
		ID:   c.ID,
		Rank: c.Rank.String(),
		Suit: c.Suit.String(),
		Code: c.Code(),
		Idx:  idx,
	}
}

func intPtr(v int) *int {
	return &v
}
