package game

// Direction of play around the table.
const (
	Clockwise        = 1
	CounterClockwise = -1
)

// NextPlayerIndex computes the index of the next player in turn
// order, wrapping in both directions. Skip-like cards apply it twice:
// once to reach the victim, once more to step past them.
func NextPlayerIndex(current, total, direction int) int {
	next := (current + direction) % total
	if next < 0 {
		next += total
	}
	return next
}
