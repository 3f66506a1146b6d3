// Package uictl defines small read-only controls that let UI models observe
// values owned by other components.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}

// CappedDial is a Dial with a maximum cap value.
type CappedDial[N Number] interface {
	Dial[N]
	Cap() (num, max N)
}

// Fraction returns how far d is towards its cap, clamped to [0, 1].
func Fraction[N Number](d CappedDial[N]) float64 {
	num, maxValue := d.Cap()
	if maxValue <= 0 {
		return 0
	}

	f := float64(num) / float64(maxValue)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}

	return f
}
