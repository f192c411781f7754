package game

import "github.com/rjsanjaymandal/uno/deck"

// IsValidMove reports whether candidate may legally be played on top.
// This is the single source of truth for legality: the engine, the
// bot policy and any UI affordance must all go through it.
//
// A played wild carries the colour its player assigned, so "matches
// the assigned wild colour" is the same check as a plain colour match.
func IsValidMove(candidate, top deck.Card) bool {
	if candidate.IsWild() {
		return true
	}
	if candidate.Color == top.Color {
		return true
	}
	if candidate.Type == deck.Number && top.Type == deck.Number && candidate.Value == top.Value {
		return true
	}
	if candidate.Type != deck.Number && candidate.Type == top.Type {
		return true
	}
	return false
}
