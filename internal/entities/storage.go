package entities

// Document identifier prefixes route the generic document operations
// between the two logical collections.
const (
	OrderIDPrefix    = "ORD-"
	DespatchIDPrefix = "D-"
)

// DocumentPatch is a partial update for a stored order or despatch
// document. Nil fields are left untouched.
type DocumentPatch struct {
	XML    *string
	Status *string
}

// LineTotals aggregates the despatch lines already recorded for a
// despatch advice.
type LineTotals struct {
	Delivered   int
	BackOrdered int
	Count       int
}
