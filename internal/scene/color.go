package scene

import (
	"fmt"
	"math/rand/v2"
)

// ColorSource produces a display color for a newly created curve.
type ColorSource func() string

// RandomColor returns a uniformly random RGB color as #RRGGBB.
func RandomColor() string {
	return fmt.Sprintf("#%06X", rand.IntN(1<<24))
}

// FixedColors returns a ColorSource cycling through colors. Used where
// curve colors must be predictable.
func FixedColors(colors ...string) ColorSource {
	i := 0
	return func() string {
		c := colors[i%len(colors)]
		i++
		return c
	}
}
