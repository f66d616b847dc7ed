// internal/models/card.go
package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Rank is a card rank, Ace (1) through King (13).
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// Suit is one of the four French suits.
type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

var rankNames = []string{"Ace", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten", "Jack", "Queen", "King"}
var rankCodes = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "T", "J", "Q", "K"}

var suitNames = []string{"Clubs", "Diamonds", "Hearts", "Spades"}
var suitCodes = []string{"C", "D", "H", "S"}

// Ranks lists every rank in ascending order.
func Ranks() []Rank {
	out := make([]Rank, 0, len(rankNames))
	for r := Ace; r <= King; r++ {
		out = append(out, r)
	}
	return out
}

// Suits lists every suit in canonical order.
func Suits() []Suit {
	return []Suit{Clubs, Diamonds, Hearts, Spades}
}

// Valid reports whether r is within Ace..King.
func (r Rank) Valid() bool {
	return r >= Ace && r <= King
}

func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rank(%d)", int(r))
	}
	return rankNames[r-1]
}

// Code returns the single-character rank code ("A", "2", ..., "T", "J", "Q", "K").
func (r Rank) Code() string {
	if !r.Valid() {
		return "?"
	}
	return rankCodes[r-1]
}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	return s >= Clubs && s <= Spades
}

func (s Suit) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Suit(%d)", int(s))
	}
	return suitNames[s]
}

// Code returns the single-character suit code.
func (s Suit) Code() string {
	if !s.Valid() {
		return "?"
	}
	return suitCodes[s]
}

// Red reports whether the suit is Diamonds or Hearts.
func (s Suit) Red() bool {
	return s == Diamonds || s == Hearts
}

// ParseRank accepts rank names ("ace", "king"), numerals ("1".."13") and codes ("A", "T", "K").
func ParseRank(s string) (Rank, error) {
	v := strings.TrimSpace(s)
	if n, err := strconv.Atoi(v); err == nil {
		if r := Rank(n); r.Valid() {
			return r, nil
		}
		return 0, fmt.Errorf("rank out of range: %s", s)
	}
	for i := range rankNames {
		if strings.EqualFold(v, rankNames[i]) || strings.EqualFold(v, rankCodes[i]) {
			return Rank(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown rank: %q", s)
}

// ParseSuit accepts suit names ("hearts") and codes ("H"), case-insensitively.
func ParseSuit(s string) (Suit, error) {
	v := strings.TrimSpace(s)
	for i := range suitNames {
		if strings.EqualFold(v, suitNames[i]) || strings.EqualFold(v, suitCodes[i]) {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("unknown suit: %q", s)
}

// Card is an immutable playing card. Rules only look at Rank and Suit; ID is the
// lookup handle issued by the deck, the rest is display data.
type Card struct {
	ID        uuid.UUID `json:"id"`
	Rank      Rank      `json:"rank"`
	Suit      Suit      `json:"suit"`
	Name      string    `json:"name,omitempty"`
	FaceImage string    `json:"faceImage,omitempty"`
	BackImage string    `json:"backImage,omitempty"`
}

// NewCard builds a card with a fresh ID and the default display name.
func NewCard(rank Rank, suit Suit) *Card {
	return &Card{
		ID:   uuid.New(),
		Rank: rank,
		Suit: suit,
		Name: fmt.Sprintf("%s of %s", rank, suit),
	}
}

// Key is the (Rank, Suit) identity pair.
type Key struct {
	Rank Rank
	Suit Suit
}

func (k Key) String() string {
	return fmt.Sprintf("%s of %s", k.Rank, k.Suit)
}

// Key returns the card's identity.
func (c *Card) Key() Key {
	return Key{Rank: c.Rank, Suit: c.Suit}
}

func (c *Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// Code returns the two-character code, e.g. "7H", "TS".
func (c *Card) Code() string {
	return c.Rank.Code() + c.Suit.Code()
}
