package server

import (
	"math/rand"

	uuid "github.com/satori/go.uuid"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 4
)

// NewID constructs a player ID
func NewID() string {
	return uuid.NewV4().String()
}

// NewRoomCode builds a short shareable room code: 4 uppercase
// alphanumerics. Uniqueness among active rooms is probabilistic; the
// store rejects the rare collision and the caller rolls again.
func NewRoomCode(rng *rand.Rand) string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeAlphabet[rng.Intn(len(roomCodeAlphabet))]
	}
	return string(code)
}
