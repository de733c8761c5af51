package pieces

import (
	"fmt"
	"strings"
)

// Color identifies one of the two sides.
type Color int

const (
	Red Color = iota
	Blue
)

// FirstMover is the color that moves first once setup completes.
const FirstMover = Red

var colorNames = map[Color]string{
	Red:  "red",
	Blue: "blue",
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("COLOR_%d", int(c))
}

// Valid reports whether c is Red or Blue.
func (c Color) Valid() bool {
	return c == Red || c == Blue
}

// Opponent returns the other color.
func (c Color) Opponent() Color {
	if c == Red {
		return Blue
	}
	return Red
}

// ParseColor accepts "red" or "blue" in any case.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return Red, nil
	case "blue":
		return Blue, nil
	default:
		return 0, fmt.Errorf("unknown color %q", s)
	}
}

// MarshalText encodes the color as its lowercase name.
func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cannot encode color %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a lowercase color name.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
