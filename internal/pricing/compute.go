package pricing

import (
	"math"
	"strconv"
	"strings"

	"github.com/Veraticus/quotedesk/internal/model"
)

// FloorPerThousand is the minimum price per thousand characters.
const FloorPerThousand = 20.0

// CoefficientPresets are the offered difficulty multipliers.
var CoefficientPresets = []float64{1.0, 1.2, 1.5, 2.0}

// Range is a computed price range.
type Range struct {
	Min     float64
	Max     float64
	BaseMin float64
	BaseMax float64
}

// Midpoint returns the rounded middle of the range.
func (r Range) Midpoint() float64 {
	return round((r.Min + r.Max) / 2)
}

// NormalizeQuantity converts an extracted word count into billable units.
// The extractor does not tell characters from pages, so large counts under
// non-character units are treated as character counts.
func NormalizeQuantity(unit model.Unit, wc float64) float64 {
	switch unit {
	case model.UnitThousand:
		return math.Ceil(wc/500) * 0.5
	case model.UnitPage:
		if wc > 100 {
			return math.Ceil(wc / 300)
		}
		return wc
	case model.UnitMinute:
		return wc
	case model.UnitPiece:
		if wc > 10 {
			return 1
		}
		return wc
	default:
		return math.Ceil(wc / 1000)
	}
}

// Compute prices quantity units of entry. ok is false when quantity is not
// positive or the entry has no price.
func Compute(entry model.ServiceEntry, quantity, coefficient float64) (Range, bool) {
	if quantity <= 0 || math.IsNaN(quantity) {
		return Range{}, false
	}
	baseMin, baseMax, ok := entry.BasePrices()
	if !ok || (baseMin <= 0 && baseMax <= 0) {
		return Range{}, false
	}
	if coefficient <= 0 || math.IsNaN(coefficient) || math.IsInf(coefficient, 0) {
		coefficient = 1.0
	}

	r := Range{
		Min:     round(baseMin * quantity * coefficient),
		Max:     round(baseMax * quantity * coefficient),
		BaseMin: baseMin,
		BaseMax: baseMax,
	}
	if entry.Unit == model.UnitThousand {
		floor := round(FloorPerThousand * quantity * coefficient)
		r.Min = math.Max(r.Min, floor)
		r.Max = math.Max(r.Max, floor)
	}
	return r, true
}

// ParseCoefficient parses a free-form coefficient. Empty, invalid or
// non-positive input yields 1.0.
func ParseCoefficient(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1.0
	}
	return v
}

// ParseQuantity parses a manually entered quantity. ok is false for empty,
// invalid or non-positive input.
func ParseQuantity(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// round rounds halves up.
func round(v float64) float64 {
	return math.Floor(v + 0.5)
}
