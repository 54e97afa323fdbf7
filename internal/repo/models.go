package repo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/shopspring/decimal"
)

type Order struct {
	OrderID       string         `db:"order_id"`
	OrderUUID     sql.NullString `db:"order_uuid"`
	CustomerID    sql.NullString `db:"customer_id"`
	IssueDate     sql.NullString `db:"issue_date"`
	Status        string         `db:"status"`
	RawXML        sql.NullString `db:"raw_xml"`
	CreatedAt     time.Time      `db:"created_at"`
	LastModified  time.Time      `db:"last_modified"`
	Reference     []byte         `db:"reference"`
	SupplierParty []byte         `db:"supplier_party"`
	CustomerParty []byte         `db:"customer_party"`
}

type OrderItem struct {
	OrderID  string          `db:"order_id"`
	Position int             `db:"position"`
	ItemID   sql.NullString  `db:"item_id"`
	Quantity decimal.Decimal `db:"quantity"`
	Price    decimal.Decimal `db:"price"`
}

type Despatch struct {
	DespatchID     string         `db:"despatch_id"`
	DespatchUUID   string         `db:"despatch_uuid"`
	OrderID        string         `db:"order_id"`
	Status         string         `db:"status"`
	IssueDate      sql.NullString `db:"issue_date"`
	Note           sql.NullString `db:"note"`
	XML            string         `db:"xml"`
	CreatedAt      time.Time      `db:"created_at"`
	LastModified   time.Time      `db:"last_modified"`
	OrderReference []byte         `db:"order_reference"`
	SupplierParty  []byte         `db:"supplier_party"`
	CustomerParty  []byte         `db:"customer_party"`
	ShipmentID     sql.NullString `db:"shipment_id"`
}

type DespatchLine struct {
	ID                int64          `db:"id"`
	DespatchID        string         `db:"despatch_id"`
	LineID            string         `db:"line_id"`
	Note              sql.NullString `db:"note"`
	Status            string         `db:"status"`
	DeliveredQuantity int            `db:"delivered_quantity"`
	BackOrderQuantity int            `db:"backorder_quantity"`
	BackOrderReason   sql.NullString `db:"backorder_reason"`
	LotNumber         int            `db:"lot_number"`
	ExpiryDate        sql.NullTime   `db:"expiry_date"`
	Item              []byte         `db:"item"`
	OrderLineRef      []byte         `db:"order_line_ref"`
}

type Shipment struct {
	ShipmentID      string `db:"shipment_id"`
	ConsignmentID   string `db:"consignment_id"`
	DeliveryAddress []byte `db:"delivery_address"`
	DeliveryPeriod  []byte `db:"delivery_period"`
}

func OrderToEntity(o Order, items []OrderItem) (entities.Order, error) {
	order := entities.Order{
		OrderID:      o.OrderID,
		UUID:         nullStringToString(o.OrderUUID),
		CustomerID:   nullStringToString(o.CustomerID),
		IssueDate:    nullStringToString(o.IssueDate),
		Status:       entities.OrderStatus(o.Status),
		CreatedAt:    o.CreatedAt,
		LastModified: o.LastModified,
	}

	if err := unmarshalInto(o.Reference, &order.Reference); err != nil {
		return entities.Order{}, fmt.Errorf("failed to decode order reference: %w", err)
	}
	supplier, err := unmarshalParty(o.SupplierParty)
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to decode supplier party: %w", err)
	}
	customer, err := unmarshalParty(o.CustomerParty)
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to decode customer party: %w", err)
	}
	order.SupplierParty = supplier
	order.CustomerParty = customer

	if len(items) > 0 {
		order.Items = make([]entities.OrderItem, 0, len(items))
		for _, it := range items {
			order.Items = append(order.Items, entities.OrderItem{
				ItemID:   nullStringToString(it.ItemID),
				Quantity: it.Quantity,
				Price:    it.Price,
			})
		}
	}
	return order, nil
}

func DespatchToEntity(d Despatch, lines []DespatchLine, shipment *Shipment) (entities.DespatchAdvice, error) {
	adv := entities.DespatchAdvice{
		DespatchID:   d.DespatchID,
		UUID:         d.DespatchUUID,
		OrderID:      d.OrderID,
		Status:       entities.DespatchStatus(d.Status),
		IssueDate:    nullStringToString(d.IssueDate),
		Note:         nullStringToString(d.Note),
		XML:          d.XML,
		CreatedAt:    d.CreatedAt,
		LastModified: d.LastModified,
	}

	if err := unmarshalInto(d.OrderReference, &adv.OrderReference); err != nil {
		return entities.DespatchAdvice{}, fmt.Errorf("failed to decode order reference: %w", err)
	}
	if err := unmarshalInto(d.SupplierParty, &adv.SupplierParty); err != nil {
		return entities.DespatchAdvice{}, fmt.Errorf("failed to decode supplier party: %w", err)
	}
	if err := unmarshalInto(d.CustomerParty, &adv.CustomerParty); err != nil {
		return entities.DespatchAdvice{}, fmt.Errorf("failed to decode customer party: %w", err)
	}

	if shipment != nil {
		sh, err := ShipmentToEntity(*shipment)
		if err != nil {
			return entities.DespatchAdvice{}, err
		}
		adv.Shipment = &sh
	}

	if len(lines) > 0 {
		adv.Lines = make([]entities.DespatchLine, 0, len(lines))
		for _, line := range lines {
			l, err := LineToEntity(line)
			if err != nil {
				return entities.DespatchAdvice{}, err
			}
			adv.Lines = append(adv.Lines, l)
		}
	}
	return adv, nil
}

func LineToEntity(l DespatchLine) (entities.DespatchLine, error) {
	line := entities.DespatchLine{
		LineID:            l.LineID,
		Note:              nullStringToString(l.Note),
		Status:            entities.LineStatus(l.Status),
		DeliveredQuantity: l.DeliveredQuantity,
		BackOrderQuantity: l.BackOrderQuantity,
		BackOrderReason:   nullStringToString(l.BackOrderReason),
		LotNumber:         l.LotNumber,
	}
	if l.ExpiryDate.Valid {
		line.ExpiryDate = l.ExpiryDate.Time
	}
	if err := unmarshalInto(l.Item, &line.Item); err != nil {
		return entities.DespatchLine{}, fmt.Errorf("failed to decode line item: %w", err)
	}
	if err := unmarshalInto(l.OrderLineRef, &line.OrderLineRef); err != nil {
		return entities.DespatchLine{}, fmt.Errorf("failed to decode order line reference: %w", err)
	}
	return line, nil
}

func ShipmentToEntity(s Shipment) (entities.Shipment, error) {
	sh := entities.Shipment{
		ID:            s.ShipmentID,
		ConsignmentID: s.ConsignmentID,
	}
	if err := unmarshalInto(s.DeliveryAddress, &sh.DeliveryAddress); err != nil {
		return entities.Shipment{}, fmt.Errorf("failed to decode delivery address: %w", err)
	}
	if err := unmarshalInto(s.DeliveryPeriod, &sh.RequestedDeliveryPeriod); err != nil {
		return entities.Shipment{}, fmt.Errorf("failed to decode delivery period: %w", err)
	}
	return sh, nil
}

func unmarshalParty(raw []byte) (*entities.PartySnapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var snap entities.PartySnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func unmarshalInto(raw []byte, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func marshalJSON(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
