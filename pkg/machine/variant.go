package machine

import (
	"fmt"
	"strings"
)

// Variant is the deployment class of a machine.
type Variant string

const (
	VariantLive Variant = "live"
	VariantDev  Variant = "dev"
	VariantTest Variant = "test"
)

// Variants lists the known variants in display order.
var Variants = []Variant{VariantLive, VariantDev, VariantTest}

// DriftRange is the interval a simulated clock drift is drawn from, in seconds.
type DriftRange struct {
	Min float64
	Max float64
}

// driftRanges is the per-variant parameter table. The drift range is the only
// behavior that differs between variants.
var driftRanges = map[Variant]DriftRange{
	VariantLive: {Min: -5.0, Max: 5.0},
	VariantDev:  {Min: -7.0, Max: 7.0},
	VariantTest: {Min: -15.0, Max: 15.0},
}

// ParseVariant converts a string such as "LIVE" or " dev " to a Variant.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := driftRanges[v]; !ok {
		return "", fmt.Errorf("'%s' is not a valid machine type. Valid types are: %s", s, variantList())
	}
	return v, nil
}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	_, ok := driftRanges[v]
	return ok
}

// DriftRange returns the clock drift range for the variant. Unknown variants
// get the live range.
func (v Variant) DriftRange() DriftRange {
	if r, ok := driftRanges[v]; ok {
		return r
	}
	return driftRanges[VariantLive]
}

func (v Variant) String() string {
	return string(v)
}

// Title returns the display name used in log lines, e.g. "LIVE".
func (v Variant) Title() string {
	return strings.ToUpper(string(v))
}

func variantList() string {
	names := make([]string, len(Variants))
	for i, v := range Variants {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
