package handler

import (
	"time"

	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/despatchhub/despatch-service/internal/service"
	"github.com/shopspring/decimal"
)

// ProcessRequest is the despatch assembly request. The order document
// travels as a string; any other JSON type in xml_doc fails decoding
// before the pipeline starts.
type ProcessRequest struct {
	XMLDoc   string                  `json:"xml_doc" validate:"required"`
	Shipment *entities.Shipment      `json:"shipment,omitempty"`
	Despatch DespatchMeta            `json:"despatch"`
	Supplier *entities.PartySnapshot `json:"supplier,omitempty"`
}

type DespatchMeta struct {
	Note         string                `json:"note,omitempty"`
	SalesOrderID string                `json:"sales_order_id,omitempty"`
	Lines        []service.LineRequest `json:"lines,omitempty"`
}

type ProcessResponse struct {
	Order      OrderSummary     `json:"order"`
	Despatch   DespatchSummary  `json:"despatch"`
	XML        string           `json:"xml"`
	Validation ValidationReport `json:"validation"`
}

type OrderSummary struct {
	OrderID string `json:"order_id"`
	UUID    string `json:"uuid,omitempty"`
	Status  string `json:"status"`
}

type DespatchSummary struct {
	DespatchID string `json:"despatch_id"`
	UUID       string `json:"uuid"`
	Status     string `json:"status"`
	Lines      int    `json:"lines"`
}

// ValidationReport mirrors the service report
// swagger:model ValidationReport
type ValidationReport struct {
	Status   string   `json:"status"`
	Issues   []string `json:"issues,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// CreateOrderRequest carries a standalone order document.
type CreateOrderRequest struct {
	XMLDoc   string                  `json:"xml_doc" validate:"required"`
	Supplier *entities.PartySnapshot `json:"supplier,omitempty"`
}

type CreateOrderResponse struct {
	Order Order `json:"order"`
}

// UpdateDespatchRequest replaces a stored despatch document.
type UpdateDespatchRequest struct {
	XML    string  `json:"xml" validate:"required"`
	Status *string `json:"status,omitempty"`
}

type CreateLineResponse struct {
	Line   DespatchLine `json:"line"`
	Totals LineTotals   `json:"totals"`
}

type LineTotals struct {
	Delivered   int `json:"delivered"`
	BackOrdered int `json:"backordered"`
	Count       int `json:"count"`
}

// Order is the JSON form of a stored order
type Order struct {
	OrderID      string      `json:"order_id"`
	UUID         string      `json:"uuid,omitempty"`
	CustomerID   string      `json:"customer_id,omitempty"`
	IssueDate    string      `json:"issue_date,omitempty"`
	Status       string      `json:"status"`
	Items        []OrderItem `json:"items,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	LastModified time.Time   `json:"last_modified"`
}

type OrderItem struct {
	ItemID   string          `json:"item_id,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Despatch is the JSON form of a stored despatch advice
type Despatch struct {
	DespatchID   string         `json:"despatch_id"`
	UUID         string         `json:"uuid"`
	OrderID      string         `json:"order_id"`
	Status       string         `json:"status"`
	IssueDate    string         `json:"issue_date,omitempty"`
	Note         string         `json:"note,omitempty"`
	ShipmentID   string         `json:"shipment_id,omitempty"`
	Lines        []DespatchLine `json:"lines,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	LastModified time.Time      `json:"last_modified"`
}

type DespatchLine struct {
	LineID            string `json:"line_id"`
	Note              string `json:"note,omitempty"`
	Status            string `json:"status"`
	DeliveredQuantity int    `json:"delivered_quantity"`
	BackOrderQuantity int    `json:"backorder_quantity"`
	BackOrderReason   string `json:"backorder_reason,omitempty"`
	LotNumber         int    `json:"lot_number,omitempty"`
	ExpiryDate        string `json:"expiry_date,omitempty"`
}

func OrderEntityToJSON(o entities.Order) Order {
	items := make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItem{ItemID: it.ItemID, Quantity: it.Quantity, Price: it.Price})
	}
	return Order{
		OrderID:      o.OrderID,
		UUID:         o.UUID,
		CustomerID:   o.CustomerID,
		IssueDate:    o.IssueDate,
		Status:       string(o.Status),
		Items:        items,
		CreatedAt:    o.CreatedAt,
		LastModified: o.LastModified,
	}
}

func DespatchEntityToJSON(adv entities.DespatchAdvice) Despatch {
	lines := make([]DespatchLine, 0, len(adv.Lines))
	for _, line := range adv.Lines {
		lines = append(lines, LineEntityToJSON(line))
	}

	out := Despatch{
		DespatchID:   adv.DespatchID,
		UUID:         adv.UUID,
		OrderID:      adv.OrderID,
		Status:       string(adv.Status),
		IssueDate:    adv.IssueDate,
		Note:         adv.Note,
		Lines:        lines,
		CreatedAt:    adv.CreatedAt,
		LastModified: adv.LastModified,
	}
	if adv.Shipment != nil {
		out.ShipmentID = adv.Shipment.ID
	}
	return out
}

func LineEntityToJSON(line entities.DespatchLine) DespatchLine {
	out := DespatchLine{
		LineID:            line.LineID,
		Note:              line.Note,
		Status:            string(line.Status),
		DeliveredQuantity: line.DeliveredQuantity,
		BackOrderQuantity: line.BackOrderQuantity,
		BackOrderReason:   line.BackOrderReason,
		LotNumber:         line.LotNumber,
	}
	if !line.ExpiryDate.IsZero() {
		out.ExpiryDate = line.ExpiryDate.Format("2006-01-02")
	}
	return out
}

func ReportToJSON(report service.ValidationReport) ValidationReport {
	return ValidationReport{
		Status:   report.Status,
		Issues:   report.Issues,
		Warnings: report.Warnings,
	}
}

func ProcessResultToJSON(res service.ProcessResult) ProcessResponse {
	return ProcessResponse{
		Order: OrderSummary{
			OrderID: res.Order.OrderID,
			UUID:    res.Order.UUID,
			Status:  string(res.Order.Status),
		},
		Despatch: DespatchSummary{
			DespatchID: res.Despatch.DespatchID,
			UUID:       res.Despatch.UUID,
			Status:     string(res.Despatch.Status),
			Lines:      res.Despatch.Lines,
		},
		XML:        res.XML,
		Validation: ReportToJSON(res.Validation),
	}
}
