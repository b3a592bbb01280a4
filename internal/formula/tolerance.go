package formula

import (
	"math/cmplx"
	"strings"
)

// CompareWithTolerance reports whether actual is within tolerance of
// expected. A tolerance ending in '%' is relative to |expected|; any other
// form is evaluated as a number and applied as an absolute bound. Both
// bounds are inclusive.
func CompareWithTolerance(actual, expected complex128, tolerance string) (bool, error) {
	tolerance = strings.TrimSpace(tolerance)
	if tolerance == "" {
		tolerance = "0"
	}
	var bound float64
	if strings.HasSuffix(tolerance, "%") {
		frac, err := Eval(strings.TrimSuffix(tolerance, "%"), nil, false)
		if err != nil {
			return false, err
		}
		bound = frac / 100 * cmplx.Abs(expected)
	} else {
		v, err := Eval(tolerance, nil, false)
		if err != nil {
			return false, err
		}
		bound = v
	}
	return cmplx.Abs(actual-expected) <= bound, nil
}
