// Package deck owns the 52-card identity space: catalog validation, the
// generated canonical set and the shuffled draw sequence used to deal a game.
package deck

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tripeaks/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyDeck         = errors.New("cannot draw from an empty deck")
	ErrInsufficientCards = errors.New("cannot draw more cards than the deck contains")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidCatalog    = errors.New("invalid card catalog")
)

// Deck is a mutable draw sequence. The top of the deck is the end of the slice.
type Deck struct {
	cards []*models.Card
	rng   *rand.Rand
}

// New validates cards and builds a deck from copies of them. Cards without an
// ID, or sharing an ID with an earlier card, get a fresh one. A nil seed seeds
// from the clock.
func New(cards []*models.Card, seed *int64) (*Deck, error) {
	if ok, errs := ValidateCompleteSet(cards); !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(DistinctErrors(errs), "; "))
	}

	owned := make([]*models.Card, 0, len(cards))
	ids := make(map[uuid.UUID]struct{}, len(cards))
	for _, c := range cards {
		cp := *c
		if _, taken := ids[cp.ID]; cp.ID == uuid.Nil || taken {
			cp.ID = uuid.New()
		}
		ids[cp.ID] = struct{}{}
		owned = append(owned, &cp)
	}

	var src rand.Source
	if seed != nil {
		src = rand.NewSource(*seed)
	} else {
		src = rand.NewSource(time.Now().UnixNano())
	}

	return &Deck{cards: owned, rng: rand.New(src)}, nil
}

// FromSource builds a deck from source, substituting the canonical set when the
// source is empty or fails validation. The substitution is logged, not returned.
func FromSource(source []*models.Card, seed *int64, logger logrus.FieldLogger) (*Deck, error) {
	if len(source) > 0 {
		ok, errs := ValidateCompleteSet(source)
		if ok {
			return New(source, seed)
		}
		if logger != nil {
			logger.WithField("errors", DistinctErrors(errs)).
				Warn("card catalog is incomplete or invalid, generating a fallback deck")
		}
	} else if logger != nil {
		logger.Warn("card catalog is empty, generating a fallback deck")
	}

	d, err := New(GenerateCanonical(), seed)
	if err != nil {
		return nil, fmt.Errorf("fallback deck: %w", err)
	}
	return d, nil
}

// GenerateCanonical returns the 52-card set, suits outer and ranks inner.
func GenerateCanonical() []*models.Card {
	cards := make([]*models.Card, 0, FullDeckSize)
	for _, suit := range models.Suits() {
		for _, rank := range models.Ranks() {
			cards = append(cards, models.NewCard(rank, suit))
		}
	}
	return cards
}

// Count returns the number of cards left.
func (d *Deck) Count() int {
	return len(d.cards)
}

// IsEmpty reports whether every card has been drawn.
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}

// Cards returns a copy of the remaining sequence, bottom first.
func (d *Deck) Cards() []*models.Card {
	out := make([]*models.Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Shuffle is an in-place Fisher-Yates over the deck's own random stream.
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (*models.Card, error) {
	if len(d.cards) == 0 {
		return nil, ErrEmptyDeck
	}
	idx := len(d.cards) - 1
	c := d.cards[idx]
	d.cards[idx] = nil
	d.cards = d.cards[:idx]
	return c, nil
}

// DrawMany removes the top n cards and returns them in their deck order.
func (d *Deck) DrawMany(n int) ([]*models.Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: count %d", ErrInvalidArgument, n)
	}
	if n > len(d.cards) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrInsufficientCards, n, len(d.cards))
	}
	start := len(d.cards) - n
	drawn := make([]*models.Card, n)
	copy(drawn, d.cards[start:])
	d.cards = d.cards[:start]
	return drawn, nil
}
