package entities

import "time"

type DespatchStatus string

const (
	DespatchStatusInitiated DespatchStatus = "Initiated"
	DespatchStatusValid     DespatchStatus = "Valid"
	DespatchStatusInvalid   DespatchStatus = "Invalid"
	DespatchStatusUpdated   DespatchStatus = "Updated"
	DespatchStatusDeleted   DespatchStatus = "Deleted"
)

type LineStatus string

const (
	LineStatusNoStatus  LineStatus = "NoStatus"
	LineStatusCompleted LineStatus = "Completed"
	LineStatusRevised   LineStatus = "Revised"
)

// DespatchAdvice is the assembled shipment notification for an order.
// Identifier format is D- followed by eight uppercase hex characters.
type DespatchAdvice struct {
	DespatchID   string
	UUID         string
	OrderID      string
	Status       DespatchStatus
	IssueDate    string
	Note         string
	CreatedAt    time.Time
	LastModified time.Time

	OrderReference OrderReference
	SupplierParty  PartySnapshot
	CustomerParty  PartySnapshot
	Shipment       *Shipment
	Lines          []DespatchLine

	// XML is the rendered document as last serialized or uploaded.
	XML string
}

// DespatchLine carries the per-line delivered and backordered amounts.
// Invariant: DeliveredQuantity + BackOrderQuantity equals the outstanding
// quantity before the line was created, and BackOrderReason is set
// whenever BackOrderQuantity is positive.
type DespatchLine struct {
	LineID            string
	Note              string
	Status            LineStatus
	DeliveredQuantity int
	BackOrderQuantity int
	BackOrderReason   string
	LotNumber         int
	ExpiryDate        time.Time
	Item              ItemSnapshot
	OrderLineRef      OrderLineReference
}

// ItemSnapshot is the despatched item as copied from the order at
// reconciliation time.
type ItemSnapshot struct {
	Description   string `json:"Description"`
	Name          string `json:"Name"`
	BuyersItemID  string `json:"BuyersItemID"`
	SellersItemID string `json:"SellersItemID"`
}

type OrderLineReference struct {
	LineID           string         `json:"LineID"`
	SalesOrderLineID string         `json:"SalesOrderLineID"`
	OrderReference   OrderReference `json:"OrderReference"`
}
