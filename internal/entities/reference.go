package entities

// OrderReference is the secondary cross-reference record correlating an
// order with its sales-order counterpart. It is created lazily: UUID and
// IssueDate are preserved once populated, while ID and SalesOrderID are
// refreshed on every resolution.
type OrderReference struct {
	ID           string
	SalesOrderID string
	UUID         string
	IssueDate    string
}

// Empty reports whether the reference has never been populated.
func (r OrderReference) Empty() bool {
	return r == OrderReference{}
}
