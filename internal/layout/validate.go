package layout

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationResults separates problems that break play (Errors) from ones the
// rules tolerate (Warnings).
type ValidationResults struct {
	Errors   []string
	Warnings []string
}

// OK reports whether there are no errors.
func (r ValidationResults) OK() bool {
	return len(r.Errors) == 0
}

// Validate checks the blocker graph. Cycles and self-blocking nodes are errors
// because the slots involved can never unblock. Blockers naming no node are
// warnings: the rules treat them as already cleared.
func Validate(l Layout) ValidationResults {
	var res ValidationResults

	byID := make(map[string]int, len(l.Nodes))
	for i, n := range l.Nodes {
		if n.ID == "" {
			continue
		}
		if prev, dup := byID[n.ID]; dup {
			res.Errors = append(res.Errors, fmt.Sprintf("duplicate node id %q at positions %d and %d", n.ID, prev, i))
		}
		byID[n.ID] = i
	}

	for i, n := range l.Nodes {
		for _, b := range n.BlockedBy {
			switch {
			case strings.TrimSpace(b) == "":
				res.Warnings = append(res.Warnings, fmt.Sprintf("node %s has a blank blocker entry", label(n, i)))
			case b == n.ID:
				res.Errors = append(res.Errors, fmt.Sprintf("node %q blocks itself", n.ID))
			default:
				if _, ok := byID[b]; !ok {
					res.Warnings = append(res.Warnings, fmt.Sprintf("node %s is blocked by unknown id %q", label(n, i), b))
				}
			}
		}
	}

	for _, cycle := range findCycles(l, byID) {
		res.Errors = append(res.Errors, fmt.Sprintf("blocker cycle: %s", strings.Join(cycle, " -> ")))
	}

	return res
}

const (
	white = iota
	grey
	black
)

// findCycles walks node -> blocker edges and returns each distinct cycle once,
// rotated to start at its smallest id and closed with that id again.
func findCycles(l Layout, byID map[string]int) [][]string {
	color := make(map[string]int, len(byID))
	var stack []string
	seen := map[string]struct{}{}
	var cycles [][]string

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		stack = append(stack, id)

		for _, b := range l.Nodes[byID[id]].BlockedBy {
			if b == id {
				continue
			}
			if _, ok := byID[b]; !ok {
				continue
			}
			switch color[b] {
			case white:
				visit(b)
			case grey:
				start := len(stack) - 1
				for stack[start] != b {
					start--
				}
				cycle := normalise(stack[start:])
				key := strings.Join(cycle, "\x00")
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					cycles = append(cycles, cycle)
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

func normalise(path []string) []string {
	lo := 0
	for i := range path {
		if path[i] < path[lo] {
			lo = i
		}
	}
	out := make([]string, 0, len(path)+1)
	out = append(out, path[lo:]...)
	out = append(out, path[:lo]...)
	return append(out, out[0])
}

func label(n Node, i int) string {
	if n.ID == "" {
		return fmt.Sprintf("#%d", i)
	}
	return fmt.Sprintf("%q", n.ID)
}
