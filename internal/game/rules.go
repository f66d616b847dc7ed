// internal/game/rules.go
package game

import "github.com/jason-s-yu/tripeaks/internal/models"

// Matches reports whether a tableau card of rank card may be played onto a
// waste card of rank waste: ranks one apart in either direction, plus the
// Ace/King wrap.
func Matches(card, waste models.Rank) bool {
	if !card.Valid() || !waste.Valid() {
		return false
	}

	diff := int(card) - int(waste)
	if diff == 1 || diff == -1 {
		return true
	}

	return (card == models.Ace && waste == models.King) || (card == models.King && waste == models.Ace)
}
