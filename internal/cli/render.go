package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jason-s-yu/tripeaks/internal/game"
	"golang.org/x/term"
)

// cellWidth is the visible width of one rendered card, "[7H]".
const cellWidth = 4

var (
	redCard   = color.New(color.FgHiRed).SprintFunc()
	blackCard = color.New(color.FgHiWhite).SprintFunc()
	backCard  = color.New(color.FgBlue).SprintFunc()
	playable  = color.New(color.Bold, color.Underline).SprintFunc()
	dim       = color.New(color.Faint).SprintFunc()
	label     = color.New(color.FgCyan).SprintFunc()
)

// terminalWidth returns the stdout width, or 80 when it is not a terminal.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// eventPrinter is an engine listener that narrates what happened.
type eventPrinter struct {
	w io.Writer
}

func (p *eventPrinter) OnEvent(ev game.GameEvent) {
	switch ev.Type {
	case game.EventGameStarted:
		fmt.Fprintf(p.w, "%s %s (seed %v)\n", label("New game"), ev.GameID, ev.Payload["seed"])
	case game.EventStreakChanged:
		if ev.Value != nil && *ev.Value > 1 {
			fmt.Fprintf(p.w, "%s x%d\n", label("Streak"), *ev.Value)
		}
	case game.EventGamePaused:
		fmt.Fprintln(p.w, "Game paused. Enter r to resume.")
	case game.EventGameResumed:
		fmt.Fprintln(p.w, "Game resumed.")
	case game.EventGameWon:
		fmt.Fprintf(p.w, "%s Final score %d. Enter n for a new game.\n", color.HiGreenString("You cleared the peaks!"), value(ev))
	case game.EventGameLost:
		fmt.Fprintf(p.w, "%s Final score %d. Enter n for a new game.\n", color.HiYellowString("No moves left."), value(ev))
	}
}

func value(ev game.GameEvent) int {
	if ev.Value == nil {
		return 0
	}
	return *ev.Value
}

// cardCell renders a card at cellWidth visible columns.
func cardCell(c *game.ObfCard) string {
	switch {
	case c == nil:
		return strings.Repeat(" ", cellWidth)
	case !c.Known:
		return backCard("[##]")
	case c.Red:
		return redCard("[" + c.Code + "]")
	default:
		return blackCard("[" + c.Code + "]")
	}
}

// renderBoard draws the tableau row by row, highest Y first, followed by the
// stock and waste line. Slot ids are printed under their cards.
func renderBoard(w io.Writer, snap game.ObfGameState, width int) {
	if len(snap.Slots) > 0 {
		rows := map[float64][]game.ObfSlot{}
		minX := math.Inf(1)
		for _, s := range snap.Slots {
			rows[s.Position.Y] = append(rows[s.Position.Y], s)
			minX = math.Min(minX, s.Position.X)
		}

		ys := make([]float64, 0, len(rows))
		for y := range rows {
			ys = append(ys, y)
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(ys)))

		// Half a layout unit is three columns, so neighbours one unit apart
		// are separated by two spaces.
		column := func(x float64) int { return int(math.Round((x-minX)*2)) * 3 }
		right := 0
		for _, s := range snap.Slots {
			right = max(right, column(s.Position.X)+cellWidth)
		}
		indent := strings.Repeat(" ", max(0, (width-right)/2))

		for _, y := range ys {
			row := rows[y]
			sort.SliceStable(row, func(i, j int) bool { return row[i].Position.X < row[j].Position.X })

			var cards, ids strings.Builder
			cur := 0
			for _, s := range row {
				pad := max(column(s.Position.X)-cur, 0)
				if cur > 0 && pad == 0 {
					pad = 1
				}
				cards.WriteString(strings.Repeat(" ", pad))
				ids.WriteString(strings.Repeat(" ", pad))
				cur += pad + cellWidth

				if s.Removed {
					cards.WriteString(cardCell(nil))
					ids.WriteString(strings.Repeat(" ", cellWidth))
					continue
				}
				cell := cardCell(s.Card)
				if s.Playable {
					cell = playable(cell)
				}
				cards.WriteString(cell)
				ids.WriteString(dim(slotLabel(s)))
			}
			fmt.Fprintln(w, indent+cards.String())
			fmt.Fprintln(w, indent+ids.String())
		}
	}

	fmt.Fprintf(w, "%s %d  %s %s  %s %d  %s %d  %s %s\n",
		label("Stock:"), snap.StockCount,
		label("Waste:"), cardCell(snap.WasteTop),
		label("Score:"), snap.Score,
		label("Streak:"), snap.Streak,
		label("State:"), snap.State)
}

// slotLabel is the slot id (or index when the node has none) fitted to the cell.
func slotLabel(s game.ObfSlot) string {
	id := s.NodeID
	if id == "" {
		id = fmt.Sprintf("#%d", s.Index)
	}
	if len(id) > cellWidth {
		id = id[:cellWidth]
	}
	return fmt.Sprintf("%-*s", cellWidth, " "+id)[:cellWidth]
}
