package model

import "fmt"

// Unit is the billing unit of a catalog entry.
type Unit string

const (
	// UnitThousand bills per thousand characters.
	UnitThousand Unit = "thousand"
	// UnitPage bills per page or slide.
	UnitPage Unit = "page"
	// UnitMinute bills per minute of audio or video.
	UnitMinute Unit = "minute"
	// UnitPiece bills per finished piece.
	UnitPiece Unit = "piece"
)

// Label returns the short human label for the unit.
func (u Unit) Label() string {
	switch u {
	case UnitThousand:
		return "千字"
	case UnitPage:
		return "页"
	case UnitMinute:
		return "分钟"
	case UnitPiece:
		return "篇"
	default:
		return "千字"
	}
}

// ServiceEntry is one priced offering in the price list.
type ServiceEntry struct {
	SimplePrice      *float64 `json:"priceSimple"`
	ComplexPrice     *float64 `json:"priceComplex"`
	Name             string   `json:"name"`
	Unit             Unit     `json:"unit"`
	Note             string   `json:"note"`
	ID               int64    `json:"id"`
	RequiresMaterial bool     `json:"requiresMaterial"`
}

// BasePrices returns the per-unit min and max prices, each falling back to
// the other when unset. ok is false when neither price is set.
func (s ServiceEntry) BasePrices() (lowest, highest float64, ok bool) {
	switch {
	case s.SimplePrice != nil && s.ComplexPrice != nil:
		return *s.SimplePrice, *s.ComplexPrice, true
	case s.SimplePrice != nil:
		return *s.SimplePrice, *s.SimplePrice, true
	case s.ComplexPrice != nil:
		return *s.ComplexPrice, *s.ComplexPrice, true
	}
	return 0, 0, false
}

// PriceLabel renders the per-unit price span, e.g. "¥30-¥50/千字".
func (s ServiceEntry) PriceLabel() string {
	lowest, highest, ok := s.BasePrices()
	if !ok {
		return "面议"
	}
	if lowest == highest {
		return fmt.Sprintf("¥%g/%s", lowest, s.Unit.Label())
	}
	return fmt.Sprintf("¥%g-¥%g/%s", lowest, highest, s.Unit.Label())
}
