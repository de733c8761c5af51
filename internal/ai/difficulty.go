package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDifficulty is returned (wrapped) for a difficulty name that is not recognised.
var ErrUnknownDifficulty = errors.New("unknown difficulty")

// Difficulty controls how far down the scored move list the opponent is willing to sample.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// DefaultDifficulty is used when a game does not name one.
const DefaultDifficulty = Medium

// ParseDifficulty accepts easy, medium or hard in any case. An empty string yields the default.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DefaultDifficulty, nil
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownDifficulty, s)
	}
}

// candidates returns how many of the n best-scored moves the difficulty samples from.
func (d Difficulty) candidates(n int) int {
	var k int
	switch d {
	case Hard:
		return 1
	case Easy:
		k = n / 2
	default:
		k = n / 4
	}
	if k < 1 {
		k = 1
	}
	return k
}
