package deck

import (
	"fmt"

	"github.com/jason-s-yu/tripeaks/internal/models"
)

// FullDeckSize is the number of distinct (Rank, Suit) identities.
const FullDeckSize = 52

// ValidateCompleteSet checks that cards holds exactly one card per (Rank, Suit).
// Every problem is recorded, including repeats of the same message; use
// DistinctErrors before showing them to a person.
func ValidateCompleteSet(cards []*models.Card) (bool, []string) {
	var errs []string
	seen := make(map[models.Key]struct{}, FullDeckSize)

	for i, c := range cards {
		if c == nil {
			errs = append(errs, "card reference is nil")
			continue
		}
		if !c.Rank.Valid() || !c.Suit.Valid() {
			errs = append(errs, fmt.Sprintf("card at position %d has no valid identity (rank %d, suit %d)", i, int(c.Rank), int(c.Suit)))
			continue
		}
		key := c.Key()
		if _, dup := seen[key]; dup {
			errs = append(errs, fmt.Sprintf("duplicate card found: %s (%s)", displayName(c), key))
			continue
		}
		seen[key] = struct{}{}
	}

	for _, suit := range models.Suits() {
		for _, rank := range models.Ranks() {
			key := models.Key{Rank: rank, Suit: suit}
			if _, ok := seen[key]; !ok {
				errs = append(errs, fmt.Sprintf("missing card: %s", key))
			}
		}
	}

	return len(errs) == 0, errs
}

// DistinctErrors drops repeated messages, keeping first-seen order.
func DistinctErrors(errs []string) []string {
	out := make([]string, 0, len(errs))
	seen := make(map[string]struct{}, len(errs))
	for _, e := range errs {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func displayName(c *models.Card) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Code()
}
