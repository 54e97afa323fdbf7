package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "Created"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// Order is the persisted purchase order record. Identifier format is
// ORD- followed by eight uppercase hex characters.
type Order struct {
	OrderID      string
	UUID         string
	CustomerID   string
	IssueDate    string
	Status       OrderStatus
	Items        []OrderItem
	CreatedAt    time.Time
	LastModified time.Time

	// Reference is populated lazily, see OrderReference.
	Reference OrderReference

	// Party snapshots carried on the order document, used when
	// assembling a despatch advice. Nil when the source order
	// did not include them.
	SupplierParty *PartySnapshot
	CustomerParty *PartySnapshot
}

type OrderItem struct {
	ItemID   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// TotalQuantity is the sum of ordered quantities across all items,
// used as the outstanding amount when a despatch has no line history.
func (o Order) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Quantity)
	}
	return total
}

// OrderDocument is the typed form of a converted inbound order document.
// Scalar fields default to empty when the source element is absent;
// CopyIndicator is nil when absent. Item quantity and price are nil when
// the source element is absent and zero when present but unparseable.
type OrderDocument struct {
	ID                 string
	UUID               string
	IssueDate          string
	CopyIndicator      *bool
	DocumentStatusCode string
	Note               string
	CustomerID         string
	Items              []DocumentItem
}

type DocumentItem struct {
	ItemID   string
	Quantity *decimal.Decimal
	Price    *decimal.Decimal
}
