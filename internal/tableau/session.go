// Package tableau is the runtime view of a layout: which slots hold a card,
// which have been cleared, and which are currently open for play.
package tableau

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tripeaks/internal/layout"
	"github.com/jason-s-yu/tripeaks/internal/models"
)

// Slot pairs a layout node with its dealt card. Unblocked is derived: the slot
// is not removed and every known blocker is removed.
type Slot struct {
	Index     int
	Node      layout.Node
	Card      *models.Card
	Removed   bool
	Unblocked bool
	FaceUp    bool
}

// Occupied reports whether a card was dealt to the slot.
func (s Slot) Occupied() bool {
	return s.Card != nil
}

// Clone returns a copy of s that shares neither its card nor its blocker list.
func (s Slot) Clone() Slot {
	if s.Card != nil {
		c := *s.Card
		s.Card = &c
	}
	s.Node.BlockedBy = append([]string(nil), s.Node.BlockedBy...)
	return s
}

// Session owns the removal and unblock flags for every slot.
type Session struct {
	slots  []*Slot
	byID   map[string]*Slot
	byCard map[uuid.UUID]*Slot
}

// NewSession returns an empty session; call Spawn to deal.
func NewSession() *Session {
	return &Session{
		byID:   make(map[string]*Slot),
		byCard: make(map[uuid.UUID]*Slot),
	}
}

// Spawn discards the previous state and creates one slot per node, in node
// order, giving slot i the card cards[i] when there is one.
func (s *Session) Spawn(nodes []layout.Node, cards []*models.Card) {
	s.slots = make([]*Slot, 0, len(nodes))
	s.byID = make(map[string]*Slot, len(nodes))
	s.byCard = make(map[uuid.UUID]*Slot, len(nodes))

	for i, n := range nodes {
		slot := &Slot{Index: i, Node: n}
		if i < len(cards) && cards[i] != nil {
			slot.Card = cards[i]
			s.byCard[slot.Card.ID] = slot
		}
		s.slots = append(s.slots, slot)

		// later duplicates win
		if strings.TrimSpace(n.ID) != "" {
			s.byID[n.ID] = slot
		}
	}

	s.UpdateUnblockedStates()
}

// UpdateUnblockedStates recomputes every slot's Unblocked flag from the
// current Removed flags.
func (s *Session) UpdateUnblockedStates() {
	for _, slot := range s.slots {
		slot.Unblocked = !slot.Removed && s.blockersCleared(slot.Node)
	}
}

func (s *Session) blockersCleared(n layout.Node) bool {
	for _, id := range n.BlockedBy {
		blocker, ok := s.byID[id]
		if !ok {
			continue
		}
		if !blocker.Removed {
			return false
		}
	}
	return true
}

// Len returns the number of slots, occupied or not.
func (s *Session) Len() int {
	return len(s.slots)
}

// Slot returns a copy of slot i.
func (s *Session) Slot(i int) (Slot, bool) {
	if i < 0 || i >= len(s.slots) {
		return Slot{}, false
	}
	return *s.slots[i], true
}

// Slots returns copies of every slot in spawn order.
func (s *Session) Slots() []Slot {
	out := make([]Slot, len(s.slots))
	for i, slot := range s.slots {
		out[i] = *slot
	}
	return out
}

// SlotIndex resolves a node id to its slot index.
func (s *Session) SlotIndex(id string) (int, bool) {
	slot, ok := s.byID[id]
	if !ok {
		return 0, false
	}
	return slot.Index, true
}

// SlotOfCard resolves a dealt card to its slot index.
func (s *Session) SlotOfCard(cardID uuid.UUID) (int, bool) {
	slot, ok := s.byCard[cardID]
	if !ok {
		return 0, false
	}
	return slot.Index, true
}

// IsUnblocked reports whether slot i is open. Unknown indices are not.
func (s *Session) IsUnblocked(i int) bool {
	if i < 0 || i >= len(s.slots) {
		return false
	}
	return s.slots[i].Unblocked
}

// IsSlotUnblocked reports whether the slot with the given node id is open.
func (s *Session) IsSlotUnblocked(id string) bool {
	slot, ok := s.byID[id]
	return ok && slot.Unblocked
}

// IsCardUnblocked reports whether the slot holding cardID is open.
func (s *Session) IsCardUnblocked(cardID uuid.UUID) bool {
	slot, ok := s.byCard[cardID]
	return ok && slot.Unblocked
}

// MarkRemoved clears slot i and recomputes unblock state. Removing an already
// removed slot changes nothing.
func (s *Session) MarkRemoved(i int) {
	if i < 0 || i >= len(s.slots) {
		return
	}
	s.slots[i].Removed = true
	s.UpdateUnblockedStates()
}

// MarkCardRemoved clears the slot holding cardID, if any.
func (s *Session) MarkCardRemoved(cardID uuid.UUID) {
	if slot, ok := s.byCard[cardID]; ok {
		s.MarkRemoved(slot.Index)
	}
}

// Reveal turns slot i face up and reports whether it changed.
func (s *Session) Reveal(i int) bool {
	if i < 0 || i >= len(s.slots) {
		return false
	}
	slot := s.slots[i]
	if slot.FaceUp {
		return false
	}
	slot.FaceUp = true
	return true
}

// RevealUnblocked turns every open, occupied, face-down slot face up and
// returns their indices.
func (s *Session) RevealUnblocked() []int {
	var revealed []int
	for _, slot := range s.slots {
		if slot.Card == nil || !slot.Unblocked || slot.FaceUp {
			continue
		}
		slot.FaceUp = true
		revealed = append(revealed, slot.Index)
	}
	return revealed
}

// Remaining counts cards still on the tableau. Empty slots do not count.
func (s *Session) Remaining() int {
	n := 0
	for _, slot := range s.slots {
		if slot.Card != nil && !slot.Removed {
			n++
		}
	}
	return n
}

// Active returns the occupied, non-removed slots in spawn order.
func (s *Session) Active() []Slot {
	var out []Slot
	for _, slot := range s.slots {
		if slot.Card != nil && !slot.Removed {
			out = append(out, *slot)
		}
	}
	return out
}
