package layout

import "fmt"

// TriPeaks returns the standard 28-slot three-peak layout. Rows run from the
// peaks (a) to the base (d); every card is covered by the two cards below it.
//
//	      a0        a1        a2
//	    b0  b1    b2  b3    b4  b5
//	  c0  c1  c2  c3  c4  c5  c6  c7  c8
//	d0  d1  d2  d3  d4  d5  d6  d7  d8  d9
//
// Nodes are ordered back to front (peaks first) so later nodes draw on top.
func TriPeaks() Layout {
	l := Layout{Name: "TriPeaks", Nodes: make([]Node, 0, 28)}

	for p := 0; p < 3; p++ {
		l.Nodes = append(l.Nodes, Node{
			ID:        id("a", p),
			Position:  Position{X: float64(3*p) - 3, Y: 1.5},
			BlockedBy: []string{id("b", 2*p), id("b", 2*p+1)},
		})
	}

	for p := 0; p < 3; p++ {
		for k := 0; k < 2; k++ {
			i := 2*p + k
			c := 3*p + k
			l.Nodes = append(l.Nodes, Node{
				ID:        id("b", i),
				Position:  Position{X: float64(3*p) - 3.5 + float64(k), Y: 0.5},
				BlockedBy: []string{id("c", c), id("c", c+1)},
			})
		}
	}

	for i := 0; i < 9; i++ {
		l.Nodes = append(l.Nodes, Node{
			ID:        id("c", i),
			Position:  Position{X: float64(i) - 4, Y: -0.5},
			BlockedBy: []string{id("d", i), id("d", i+1)},
		})
	}

	for i := 0; i < 10; i++ {
		l.Nodes = append(l.Nodes, Node{
			ID:       id("d", i),
			Position: Position{X: float64(i) - 4.5, Y: -1.5},
		})
	}

	return l
}

func id(row string, i int) string {
	return fmt.Sprintf("%s%d", row, i)
}
