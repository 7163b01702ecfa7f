// Package frac implements exact fraction arithmetic for musical positions.
// Positions stay rational through every comparison and interpolation step;
// conversion to float64 happens only at the final screen-space projection.
package frac

import (
	"encoding/json"
	"fmt"
)

// Fraction is a rational number with a strictly positive denominator.
type Fraction struct {
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`
}

// New builds a fraction, normalizing the sign onto the numerator.
// A zero denominator is a programmer error.
func New(n, d int64) Fraction {
	if d == 0 {
		panic("frac: zero denominator")
	}
	if d < 0 {
		n, d = -n, -d
	}
	return Fraction{Numerator: n, Denominator: d}
}

// Zero is the additive identity, 0/1.
func Zero() Fraction { return Fraction{Numerator: 0, Denominator: 1} }

func (f Fraction) Add(g Fraction) Fraction {
	return New(f.Numerator*g.Denominator+g.Numerator*f.Denominator, f.Denominator*g.Denominator).Reduced()
}

func (f Fraction) Sub(g Fraction) Fraction {
	return New(f.Numerator*g.Denominator-g.Numerator*f.Denominator, f.Denominator*g.Denominator).Reduced()
}

func (f Fraction) Mul(g Fraction) Fraction {
	return New(f.Numerator*g.Numerator, f.Denominator*g.Denominator).Reduced()
}

// Div divides by a non-zero fraction.
func (f Fraction) Div(g Fraction) Fraction {
	if g.Numerator == 0 {
		panic("frac: division by zero")
	}
	return New(f.Numerator*g.Denominator, f.Denominator*g.Numerator).Reduced()
}

// DivInt divides the fraction by a non-zero integer.
func (f Fraction) DivInt(k int64) Fraction {
	return New(f.Numerator, f.Denominator*k).Reduced()
}

// Cmp compares two fractions exactly via cross multiplication.
// Returns -1, 0 or 1.
func (f Fraction) Cmp(g Fraction) int {
	l := f.Numerator * g.Denominator
	r := g.Numerator * f.Denominator
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func (f Fraction) Equal(g Fraction) bool { return f.Cmp(g) == 0 }

func (f Fraction) IsZero() bool { return f.Numerator == 0 }

// Value projects the fraction onto the unit interval scale as a float64.
// This is the lossy step; callers keep everything rational until here.
func (f Fraction) Value() float64 {
	return float64(f.Numerator) / float64(f.Denominator)
}

// Floor returns the largest integer not greater than the fraction.
func (f Fraction) Floor() int64 {
	q := f.Numerator / f.Denominator
	if f.Numerator%f.Denominator != 0 && f.Numerator < 0 {
		q--
	}
	return q
}

// FracPart returns f minus its floor, always in [0, 1).
func (f Fraction) FracPart() Fraction {
	return f.Sub(New(f.Floor(), 1))
}

// Reduced returns the fraction in lowest terms.
func (f Fraction) Reduced() Fraction {
	n := f.Numerator
	if n < 0 {
		n = -n
	}
	g := gcd(n, f.Denominator)
	if g <= 1 {
		return f
	}
	return Fraction{Numerator: f.Numerator / g, Denominator: f.Denominator / g}
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// UnmarshalJSON enforces the positive-denominator invariant at the
// deserialization boundary.
func (f *Fraction) UnmarshalJSON(data []byte) error {
	type raw Fraction
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.Denominator <= 0 {
		return fmt.Errorf("fraction %d/%d: denominator must be positive", r.Numerator, r.Denominator)
	}
	*f = Fraction(r)
	return nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
