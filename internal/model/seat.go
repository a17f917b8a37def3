package model

// Seat types partition every branch's capacity. SeatTypeOpen is the merit
// pool any candidate may occupy; each reserved type is restricted to
// candidates of the matching category.
const (
	SeatTypeOpen = "OPEN"

	CategoryGeneral = "GEN" // GEN candidates compete for OPEN seats only
	CategoryOBC     = "OBC"
	CategorySC      = "SC"
	CategoryST      = "ST"
	CategoryEWS     = "EWS"
)

// ReservedCategories is the closed set of categories that own a reserved
// seat type. GEN is deliberately absent: general candidates hold open
// seats only.
var ReservedCategories = map[string]bool{
	CategoryOBC: true,
	CategorySC:  true,
	CategoryST:  true,
	CategoryEWS: true,
}

// SeatTypes lists every valid seat type: the open pool plus one reserved
// type per category. The order is fixed so reports iterate deterministically.
var SeatTypes = []string{SeatTypeOpen, CategoryOBC, CategorySC, CategoryST, CategoryEWS}

// ValidSeatType reports whether t names the open pool or one of the
// reserved types.
func ValidSeatType(t string) bool {
	if t == SeatTypeOpen {
		return true
	}
	return ReservedCategories[t]
}

// ValidCategory reports whether cat is GEN or one of the reserved categories.
func ValidCategory(cat string) bool {
	return cat == CategoryGeneral || ReservedCategories[cat]
}
