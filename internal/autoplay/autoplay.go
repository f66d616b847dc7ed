// Package autoplay drives an engine without a human: it plays the first legal
// tableau card and draws from the stock otherwise.
package autoplay

import (
	"github.com/jason-s-yu/tripeaks/internal/game"
)

// Result summarises one autoplayed game.
type Result struct {
	State game.State
	Score int
	Steps int
}

// Won reports whether the game cleared the tableau.
func (r Result) Won() bool {
	return r.State == game.StateWon
}

// Step makes one move. It returns false without touching e when the engine is
// not playing.
func Step(e *game.Engine) bool {
	if e.State() != game.StatePlaying {
		return false
	}
	if moves := e.PlayableCards(); len(moves) > 0 {
		e.SelectCard(moves[0].Card.ID)
		return true
	}
	e.DrawFromStock()
	return true
}

// Run steps e until the game stops playing or maxSteps moves were made. A
// non-positive maxSteps means no limit.
func Run(e *game.Engine, maxSteps int) Result {
	steps := 0
	for maxSteps <= 0 || steps < maxSteps {
		if !Step(e) {
			break
		}
		steps++
	}
	return Result{State: e.State(), Score: e.Score(), Steps: steps}
}
