// Package layout describes tableau slots: where each one sits and which other
// slots must be cleared before it can be played.
package layout

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Position is presentation-only; rules never read it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a static slot descriptor. An empty ID leaves the slot unaddressable,
// so nothing can list it as a blocker.
type Node struct {
	ID        string   `json:"id"`
	Position  Position `json:"position"`
	BlockedBy []string `json:"blockedBy"`
}

// Layout is an ordered list of nodes. Order decides which dealt card goes where.
type Layout struct {
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
}

// Len returns the number of nodes.
func (l Layout) Len() int {
	return len(l.Nodes)
}

// NodeByID returns the first node with the given id. Blank ids never match.
func (l Layout) NodeByID(id string) (Node, bool) {
	if strings.TrimSpace(id) == "" {
		return Node{}, false
	}
	for _, n := range l.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// layoutFile mirrors the TOML shape, where x/y sit directly on each node.
type layoutFile struct {
	Name  string     `toml:"name"`
	Nodes []nodeFile `toml:"nodes"`
}

type nodeFile struct {
	ID        string   `toml:"id"`
	X         float64  `toml:"x"`
	Y         float64  `toml:"y"`
	BlockedBy []string `toml:"blocked_by"`
}

// LoadFile decodes a TOML layout:
//
//	name = "Pyramid"
//	[[nodes]]
//	id = "top"
//	x = 0.0
//	y = 1.0
//	blocked_by = ["left", "right"]
func LoadFile(path string) (Layout, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Layout{}, fmt.Errorf("layout not found: %s", path)
	}

	var file layoutFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return Layout{}, fmt.Errorf("error parsing layout %s: %w", path, err)
	}

	l := Layout{Name: file.Name, Nodes: make([]Node, 0, len(file.Nodes))}
	for _, n := range file.Nodes {
		l.Nodes = append(l.Nodes, Node{
			ID:        strings.TrimSpace(n.ID),
			Position:  Position{X: n.X, Y: n.Y},
			BlockedBy: n.BlockedBy,
		})
	}
	return l, nil
}
