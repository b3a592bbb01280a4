package formula

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// SampleSpec declares the variables and ranges over which two formulas are
// compared numerically. The wire form is "x,y@-5,-5:5,5#10": variable names,
// per-variable low bounds, per-variable high bounds, sample count.
type SampleSpec struct {
	Variables []string
	Low       []float64
	High      []float64
	Count     int
}

// ParseSamples parses the "vars@lows:highs#count" sample declaration.
func ParseSamples(s string) (SampleSpec, error) {
	var spec SampleSpec
	at := strings.SplitN(s, "@", 2)
	if len(at) != 2 {
		return spec, fmt.Errorf("samples %q: missing '@'", s)
	}
	spec.Variables = strings.Split(at[0], ",")

	hash := strings.SplitN(at[1], "#", 2)
	if len(hash) != 2 {
		return spec, fmt.Errorf("samples %q: missing '#'", s)
	}
	count, err := strconv.Atoi(hash[1])
	if err != nil || count < 1 {
		return spec, fmt.Errorf("samples %q: bad sample count", s)
	}
	spec.Count = count

	bounds := strings.SplitN(hash[0], ":", 2)
	if len(bounds) != 2 {
		return spec, fmt.Errorf("samples %q: missing ':'", s)
	}
	spec.Low, err = parseFloats(bounds[0])
	if err != nil {
		return spec, fmt.Errorf("samples %q: %v", s, err)
	}
	spec.High, err = parseFloats(bounds[1])
	if err != nil {
		return spec, fmt.Errorf("samples %q: %v", s, err)
	}
	if len(spec.Low) != len(spec.Variables) || len(spec.High) != len(spec.Variables) {
		return spec, fmt.Errorf("samples %q: bounds do not match variables", s)
	}
	return spec, nil
}

// Draw picks one random value per variable, uniform over [low, high).
func (s SampleSpec) Draw(rng *rand.Rand) map[string]float64 {
	vars := make(map[string]float64, len(s.Variables))
	for i, name := range s.Variables {
		vars[name] = s.Low[i] + rng.Float64()*(s.High[i]-s.Low[i])
	}
	return vars
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad bound %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}
