// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/tripeaks/internal/layout"
	"github.com/jason-s-yu/tripeaks/internal/models"
)

// ObfCard holds minimal info for a card. Face-down cards carry only their id.
type ObfCard struct {
	ID    uuid.UUID `json:"id"`
	Known bool      `json:"known"`
	Rank  string    `json:"rank,omitempty"`
	Suit  string    `json:"suit,omitempty"`
	Code  string    `json:"code,omitempty"`
	Red   bool      `json:"red,omitempty"`
}

// ObfSlot is one tableau slot as presentation may see it.
type ObfSlot struct {
	Index     int             `json:"index"`
	NodeID    string          `json:"node_id,omitempty"`
	Position  layout.Position `json:"position"`
	Removed   bool            `json:"removed"`
	Unblocked bool            `json:"unblocked"`
	Playable  bool            `json:"playable"`
	Card      *ObfCard        `json:"card,omitempty"` // nil for empty slots
}

// ObfGameState is returned by Snapshot.
type ObfGameState struct {
	GameID     uuid.UUID `json:"game_id"`
	State      string    `json:"state"`
	Score      int       `json:"score"`
	Streak     int       `json:"streak"`
	StockCount int       `json:"stock_count"`
	Remaining  int       `json:"remaining"`
	WasteTop   *ObfCard  `json:"waste_top,omitempty"`
	Slots      []ObfSlot `json:"slots"`
}

// Snapshot returns a read-only view of the current game with face-down
// tableau cards obfuscated.
func (e *Engine) Snapshot() ObfGameState {
	obf := ObfGameState{
		GameID:     e.gameID,
		State:      e.state.String(),
		Score:      e.score,
		Streak:     e.streak,
		StockCount: len(e.stock),
		Remaining:  e.tableau.Remaining(),
	}
	if e.waste != nil {
		obf.WasteTop = knownCard(e.waste)
	}

	for _, slot := range e.tableau.Slots() {
		view := ObfSlot{
			Index:     slot.Index,
			NodeID:    slot.Node.ID,
			Position:  slot.Node.Position,
			Removed:   slot.Removed,
			Unblocked: slot.Unblocked,
			Playable:  e.canPlaySlot(slot),
		}
		if slot.Card != nil {
			if slot.FaceUp {
				view.Card = knownCard(slot.Card)
			} else {
				view.Card = &ObfCard{ID: slot.Card.ID}
			}
		}
		obf.Slots = append(obf.Slots, view)
	}

	return obf
}

func knownCard(c *models.Card) *ObfCard {
	return &ObfCard{
		ID:    c.ID,
		Known: true,
		Rank:  c.Rank.String(),
		Suit:  c.Suit.String(),
		Code:  c.Code(),
		Red:   c.Suit.Red(),
	}
}
