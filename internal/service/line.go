package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/despatchhub/despatch-service/internal/normalize"
	"github.com/google/uuid"
)

// LineRequest is a caller-supplied despatch line. All seven fields are
// mandatory; quantity-like fields accept numbers or numeric strings and
// are coerced before use. JSON keys keep the wire capitalization.
type LineRequest struct {
	DeliveredQuantity any     `json:"DeliveredQuantity"`
	BackOrderQuantity any     `json:"BackOrderQuantity"`
	ID                *string `json:"ID"`
	Note              *string `json:"Note"`
	BackOrderReason   *string `json:"BackOrderReason"`
	LotNumber         any     `json:"LotNumber"`
	ExpiryDate        *string `json:"ExpiryDate"`
}

// lineFields is a fully coerced line request.
type lineFields struct {
	ID         string
	Note       string
	Reason     string
	Delivered  int
	BackOrder  int
	Lot        int
	ExpiryDate time.Time
}

// parseLineRequest checks completeness and coerces every field. Any
// missing key is reported with one collapsed error; any field that
// fails coercion maps to the fixed re-enter message.
func parseLineRequest(req LineRequest) (lineFields, error) {
	if req.DeliveredQuantity == nil || req.BackOrderQuantity == nil ||
		req.ID == nil || req.Note == nil || req.BackOrderReason == nil ||
		req.LotNumber == nil || req.ExpiryDate == nil {
		return lineFields{}, entities.ErrIncompleteLine
	}

	delivered, err := normalize.Int(req.DeliveredQuantity)
	if err != nil {
		return lineFields{}, entities.ErrInvalidQuantity
	}
	backorder, err := normalize.Int(req.BackOrderQuantity)
	if err != nil {
		return lineFields{}, entities.ErrInvalidQuantity
	}
	lot, err := normalize.LotNumber(req.LotNumber)
	if err != nil {
		return lineFields{}, entities.ErrInvalidQuantity
	}
	expiry, err := normalize.Date(*req.ExpiryDate)
	if err != nil {
		return lineFields{}, entities.ErrInvalidQuantity
	}

	return lineFields{
		ID:         *req.ID,
		Note:       *req.Note,
		Reason:     *req.BackOrderReason,
		Delivered:  delivered,
		BackOrder:  backorder,
		Lot:        lot,
		ExpiryDate: expiry,
	}, nil
}

// buildLine assembles a despatch line against the order item at idx.
// Status assignment and quantity reconciliation are the caller's job.
func buildLine(req LineRequest, order entities.Order, idx int) (entities.DespatchLine, error) {
	fields, err := parseLineRequest(req)
	if err != nil {
		return entities.DespatchLine{}, err
	}
	return lineFromFields(fields, order, idx), nil
}

func lineFromFields(fields lineFields, order entities.Order, idx int) entities.DespatchLine {
	lineID := fields.ID
	if lineID == "" {
		lineID = uuid.NewString()
	}
	return entities.DespatchLine{
		LineID:            lineID,
		Note:              fields.Note,
		Status:            entities.LineStatusNoStatus,
		DeliveredQuantity: fields.Delivered,
		BackOrderQuantity: fields.BackOrder,
		BackOrderReason:   fields.Reason,
		LotNumber:         fields.Lot,
		ExpiryDate:        fields.ExpiryDate,
		Item:              snapshotItem(order.Items[idx]),
		OrderLineRef: entities.OrderLineReference{
			LineID:         strconv.Itoa(idx + 1),
			OrderReference: order.Reference,
		},
	}
}

func snapshotItem(item entities.OrderItem) entities.ItemSnapshot {
	return entities.ItemSnapshot{
		Name:          item.ItemID,
		SellersItemID: item.ItemID,
	}
}

// lineRejection maps line assembly errors onto HTTP rejections. The
// incomplete and invalid-quantity messages are part of the client
// contract and pass through verbatim.
func lineRejection(err error) *Rejection {
	switch {
	case errors.Is(err, entities.ErrIncompleteLine):
		return reject(http.StatusBadRequest, "Error: %v.", entities.ErrIncompleteLine)
	case errors.Is(err, entities.ErrInvalidQuantity):
		return reject(http.StatusBadRequest, "%s", entities.ErrInvalidQuantity.Error())
	default:
		return reject(http.StatusBadRequest, "%v", err)
	}
}

// ReconcileLine builds a single despatch line for the order matching
// the correlation key, trying the document UUID first and the order id
// second.
func (s *DespatchService) ReconcileLine(ctx context.Context, req LineRequest, correlationID string) (entities.DespatchLine, error) {
	order, err := s.lookupOrder(ctx, correlationID)
	if err != nil {
		return entities.DespatchLine{}, err
	}
	if len(order.Items) == 0 {
		return entities.DespatchLine{}, reject(http.StatusBadRequest, "No items in order")
	}

	line, err := buildLine(req, order, 0)
	if err != nil {
		return entities.DespatchLine{}, lineRejection(err)
	}
	return line, nil
}

func (s *DespatchService) lookupOrder(ctx context.Context, key string) (entities.Order, error) {
	order, err := s.repo.FindOrderByUUID(ctx, key)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, entities.ErrOrderNotFound) {
		return entities.Order{}, err
	}
	return s.repo.FindOrder(ctx, key)
}

// CreateDespatchLine appends a line to an existing despatch advice. The
// backorder amount is derived from what remains undelivered, so the sum
// of delivered and backordered quantities always equals the ordered
// total. Appends to the same despatch are serialized.
func (s *DespatchService) CreateDespatchLine(ctx context.Context, despatchID string, req LineRequest) (entities.DespatchLine, entities.LineTotals, error) {
	unlock := s.locks.lock(despatchID)
	defer unlock()

	adv, err := s.repo.FindDespatch(ctx, despatchID)
	if err != nil {
		return entities.DespatchLine{}, entities.LineTotals{}, err
	}
	order, err := s.repo.FindOrder(ctx, adv.OrderID)
	if err != nil {
		return entities.DespatchLine{}, entities.LineTotals{}, err
	}
	if len(order.Items) == 0 {
		return entities.DespatchLine{}, entities.LineTotals{}, reject(http.StatusBadRequest, "No items in order")
	}

	fields, err := parseLineRequest(req)
	if err != nil {
		return entities.DespatchLine{}, entities.LineTotals{}, lineRejection(err)
	}
	if fields.Delivered < 0 {
		return entities.DespatchLine{}, entities.LineTotals{},
			reject(http.StatusBadRequest, "delivered_quantity must be a non-negative number")
	}

	totals, err := s.repo.LineTotals(ctx, despatchID)
	if err != nil {
		return entities.DespatchLine{}, entities.LineTotals{}, err
	}

	// first line draws from the full ordered quantity, later ones
	// from whatever the previous line left on backorder
	remaining := int(order.TotalQuantity().IntPart())
	if totals.Count > 0 {
		remaining = totals.BackOrdered
	}

	fields.BackOrder = remaining - fields.Delivered
	if fields.BackOrder < 0 {
		return entities.DespatchLine{}, entities.LineTotals{},
			reject(http.StatusBadRequest, "Delivered quantity exceeds order quantity")
	}
	if fields.BackOrder > 0 && fields.Reason == "" {
		return entities.DespatchLine{}, entities.LineTotals{},
			reject(http.StatusBadRequest, "Backorder reason is required when backorder quantity is positive")
	}

	line := lineFromFields(fields, order, 0)
	// every appended line gets its own id; the request ID is only
	// honored on the single-line reconcile path
	line.LineID = uuid.NewString()
	line.OrderLineRef.LineID = strconv.Itoa(totals.Count + 1)
	if fields.BackOrder > 0 {
		line.Status = entities.LineStatusRevised
	} else {
		line.Status = entities.LineStatusCompleted
	}

	if err := s.repo.InsertDespatchLine(ctx, despatchID, line); err != nil {
		return entities.DespatchLine{}, entities.LineTotals{}, fmt.Errorf("failed to insert despatch line: %w", err)
	}

	updated := entities.LineTotals{
		Delivered:   totals.Delivered + fields.Delivered,
		BackOrdered: fields.BackOrder,
		Count:       totals.Count + 1,
	}
	return line, updated, nil
}

// keyedMutex serializes operations per despatch id. Entries are never
// evicted; the key space is bounded by the number of live despatches.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
