package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/despatchhub/despatch-service/internal/document"
	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/despatchhub/despatch-service/pkg/trm"
	"github.com/despatchhub/despatch-service/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DespatchRepo is the storage collaborator contract. Records are keyed
// by business identifiers; the generic document operations route on the
// ORD-/D- prefix.
type DespatchRepo interface {
	FindOrder(ctx context.Context, orderID string) (entities.Order, error)
	FindOrderByUUID(ctx context.Context, orderUUID string) (entities.Order, error)
	InsertOrder(ctx context.Context, order entities.Order) (string, error)
	SaveOrderReference(ctx context.Context, orderID string, ref entities.OrderReference) error

	FindDespatch(ctx context.Context, despatchID string) (entities.DespatchAdvice, error)
	InsertDespatch(ctx context.Context, adv entities.DespatchAdvice) (string, error)
	InsertDespatchLine(ctx context.Context, despatchID string, line entities.DespatchLine) error
	LineTotals(ctx context.Context, despatchID string) (entities.LineTotals, error)

	InsertShipment(ctx context.Context, sh entities.Shipment) (string, error)

	UpdateDocument(ctx context.Context, id string, patch entities.DocumentPatch) (bool, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)
}

type Cache interface {
	Get(key string) (string, bool)
	Set(key string, value string)
	Delete(key string)
}

type DespatchService struct {
	logger *slog.Logger
	txm    trm.Manager
	repo   DespatchRepo
	cache  Cache
	locks  *keyedMutex
	now    func() time.Time
}

func NewDespatchService(logger *slog.Logger, txm trm.Manager, repo DespatchRepo, cache Cache) *DespatchService {
	return &DespatchService{
		logger: logger.With(slog.String("service", "despatch")),
		txm:    txm,
		repo:   repo,
		cache:  cache,
		locks:  newKeyedMutex(),
		now:    time.Now,
	}
}

// DespatchMeta carries the caller-supplied despatch header and the
// optional per-line delivery amounts. When Lines is empty every order
// item is despatched in full.
type DespatchMeta struct {
	Note         string
	SalesOrderID string
	Lines        []LineRequest
}

type ProcessRequest struct {
	Document string
	Shipment *entities.Shipment
	Meta     DespatchMeta
	Supplier *entities.PartySnapshot
}

type ProcessResult struct {
	Order      OrderSummary
	Despatch   DespatchSummary
	XML        string
	Validation ValidationReport
}

type OrderSummary struct {
	OrderID string
	UUID    string
	Status  entities.OrderStatus
}

type DespatchSummary struct {
	DespatchID string
	UUID       string
	Status     entities.DespatchStatus
	Lines      int
}

type ValidationReport struct {
	Status   string
	Issues   []string
	Warnings []string
}

const defaultDespatchNote = "Generated by Despatch Advice Generator"

// Process runs the full assembly pipeline: validate the inbound order
// document, create the order, resolve reference and parties, reconcile
// lines, persist the despatch advice, validate it and serialize it.
// Any stage failure short-circuits with a *Rejection; a created order
// is never rolled back once despatch creation fails.
func (s *DespatchService) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	ok, issues, doc := ValidateOrderXML(req.Document)
	if !ok {
		return ProcessResult{}, rejectWithIssues(http.StatusBadRequest, "Order validation failed", issues)
	}
	s.logger.DebugContext(ctx, "pipeline stage reached", slog.String("stage", "OrderValidated"))

	order, err := s.createOrderFromDocument(ctx, doc, req.Supplier)
	if err != nil {
		return ProcessResult{}, err
	}
	s.logger.DebugContext(ctx, "pipeline stage reached",
		slog.String("stage", "OrderCreated"), slog.String("order_id", order.OrderID))

	ref, err := s.resolveOrderReference(ctx, order, req.Meta.SalesOrderID)
	if err != nil {
		return ProcessResult{}, AsRejection(err)
	}

	supplier, customer, err := s.resolveParties(order, req.Supplier)
	if err != nil {
		return ProcessResult{}, err
	}
	s.logger.DebugContext(ctx, "pipeline stage reached", slog.String("stage", "PartiesResolved"))

	if req.Shipment != nil {
		if err := s.CreateShipment(ctx, req.Shipment); err != nil {
			return ProcessResult{}, AsRejection(err)
		}
	}

	lines, err := s.reconcileLines(ctx, req.Meta.Lines, order)
	if err != nil {
		return ProcessResult{}, err
	}
	s.logger.DebugContext(ctx, "pipeline stage reached",
		slog.String("stage", "LinesReconciled"), slog.Int("lines", len(lines)))

	now := s.now()
	adv := entities.DespatchAdvice{
		DespatchID:     entities.DespatchIDPrefix + randomHexID(),
		UUID:           uuid.NewString(),
		OrderID:        order.OrderID,
		Status:         entities.DespatchStatusInitiated,
		IssueDate:      now.Format("2006-01-02"),
		Note:           noteOrDefault(req.Meta.Note),
		CreatedAt:      now,
		LastModified:   now,
		OrderReference: ref,
		SupplierParty:  supplier,
		CustomerParty:  customer,
		Shipment:       req.Shipment,
		Lines:          lines,
	}

	xml, err := document.Serialize(&adv, document.TypeDespatchAdvice)
	if err != nil {
		return ProcessResult{}, AsRejection(err)
	}
	adv.XML = xml

	if err := s.persistDespatch(ctx, adv); err != nil {
		return ProcessResult{}, reject(http.StatusInternalServerError, "Failed to create despatch advice")
	}
	s.logger.DebugContext(ctx, "pipeline stage reached",
		slog.String("stage", "DespatchCreated"), slog.String("despatch_id", adv.DespatchID))

	report := s.validateDespatchRecord(ctx, &adv)
	s.logger.DebugContext(ctx, "pipeline stage reached",
		slog.String("stage", "DespatchValidated"), slog.String("status", report.Status))

	s.cache.Set(adv.DespatchID, adv.XML)

	return ProcessResult{
		Order: OrderSummary{OrderID: order.OrderID, UUID: order.UUID, Status: order.Status},
		Despatch: DespatchSummary{
			DespatchID: adv.DespatchID,
			UUID:       adv.UUID,
			Status:     adv.Status,
			Lines:      len(adv.Lines),
		},
		XML:        adv.XML,
		Validation: report,
	}, nil
}

func (s *DespatchService) createOrderFromDocument(ctx context.Context, doc *entities.OrderDocument, supplier *entities.PartySnapshot) (entities.Order, error) {
	now := s.now()
	order := entities.Order{
		OrderID:       entities.OrderIDPrefix + randomHexID(),
		UUID:          doc.UUID,
		CustomerID:    doc.CustomerID,
		IssueDate:     doc.IssueDate,
		Status:        entities.OrderStatusCreated,
		CreatedAt:     now,
		LastModified:  now,
		SupplierParty: supplier,
	}
	for _, item := range doc.Items {
		order.Items = append(order.Items, entities.OrderItem{
			ItemID:   item.ItemID,
			Quantity: derefAmount(item.Quantity),
			Price:    derefAmount(item.Price),
		})
	}

	insert := func() error {
		_, err := s.repo.InsertOrder(ctx, order)
		return err
	}
	if err := utils.Retry(storageRetryConfig, insert); err != nil {
		s.logger.ErrorContext(ctx, "failed to insert order", slog.Any("error", err))
		return entities.Order{}, reject(http.StatusInternalServerError, "Failed to create order")
	}
	return order, nil
}

// resolveOrderReference refreshes the identifier fields of the order's
// cross-reference and fills UUID and IssueDate only when they have
// never been populated.
func (s *DespatchService) resolveOrderReference(ctx context.Context, order entities.Order, salesOrderID string) (entities.OrderReference, error) {
	ref := order.Reference
	ref.ID = order.OrderID
	ref.SalesOrderID = salesOrderID
	if ref.UUID == "" {
		ref.UUID = order.UUID
	}
	if ref.IssueDate == "" {
		ref.IssueDate = order.IssueDate
	}

	if err := s.repo.SaveOrderReference(ctx, order.OrderID, ref); err != nil {
		return entities.OrderReference{}, fmt.Errorf("failed to save order reference: %w", err)
	}
	return ref, nil
}

func (s *DespatchService) resolveParties(order entities.Order, hint *entities.PartySnapshot) (entities.PartySnapshot, entities.PartySnapshot, error) {
	var supplier entities.PartySnapshot
	switch {
	case order.SupplierParty != nil:
		supplier = *order.SupplierParty
	case hint != nil:
		supplier = *hint
	default:
		return entities.PartySnapshot{}, entities.PartySnapshot{},
			reject(http.StatusInternalServerError, "Error: could not retrieve despatch supplier information.")
	}

	var customer entities.PartySnapshot
	if order.CustomerParty != nil {
		customer = *order.CustomerParty
	} else {
		// fixed shape with empty fields, only the account id is known
		customer.CustomerAssignedAccountID = order.CustomerID
	}
	return supplier, customer, nil
}

func (s *DespatchService) reconcileLines(ctx context.Context, requests []LineRequest, order entities.Order) ([]entities.DespatchLine, error) {
	if len(requests) == 0 {
		return fullDeliveryLines(order), nil
	}
	if len(requests) > len(order.Items) {
		return nil, reject(http.StatusBadRequest, "More despatch lines than order items")
	}

	lines := make([]entities.DespatchLine, 0, len(requests))
	for i, req := range requests {
		line, err := buildLine(req, order, i)
		if err != nil {
			return nil, lineRejection(err)
		}

		if line.BackOrderQuantity < 0 {
			return nil, reject(http.StatusBadRequest, "Delivered quantity exceeds order quantity")
		}
		total := decimal.NewFromInt(int64(line.DeliveredQuantity + line.BackOrderQuantity))
		if !total.Equal(order.Items[i].Quantity) {
			return nil, reject(http.StatusBadRequest,
				"Delivered and backorder quantities do not reconcile with the ordered quantity")
		}
		if line.BackOrderQuantity > 0 && line.BackOrderReason == "" {
			return nil, reject(http.StatusBadRequest,
				"Backorder reason is required when backorder quantity is positive")
		}

		if line.BackOrderQuantity > 0 {
			line.Status = entities.LineStatusRevised
		} else {
			line.Status = entities.LineStatusCompleted
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// fullDeliveryLines despatches every order item in full when the caller
// supplied no per-line amounts.
func fullDeliveryLines(order entities.Order) []entities.DespatchLine {
	lines := make([]entities.DespatchLine, 0, len(order.Items))
	for i, item := range order.Items {
		lines = append(lines, entities.DespatchLine{
			LineID:            uuid.NewString(),
			Status:            entities.LineStatusCompleted,
			DeliveredQuantity: int(item.Quantity.IntPart()),
			BackOrderQuantity: 0,
			Item:              snapshotItem(item),
			OrderLineRef: entities.OrderLineReference{
				LineID:         strconv.Itoa(i + 1),
				OrderReference: order.Reference,
			},
		})
	}
	return lines
}

// persistDespatch stores the advice and its lines in one transaction.
// Atomicity covers this single document only.
func (s *DespatchService) persistDespatch(ctx context.Context, adv entities.DespatchAdvice) error {
	return s.txm.Do(ctx, func(ctx context.Context) error {
		if _, err := s.repo.InsertDespatch(ctx, adv); err != nil {
			return fmt.Errorf("failed to insert despatch: %w", err)
		}
		for _, line := range adv.Lines {
			if err := s.repo.InsertDespatchLine(ctx, adv.DespatchID, line); err != nil {
				return fmt.Errorf("failed to insert despatch line: %w", err)
			}
		}
		return nil
	})
}

// validateDespatchRecord runs the post-assembly validation and stamps
// the resulting lifecycle status. A failed status write is logged, not
// fatal: the caller already holds the report.
func (s *DespatchService) validateDespatchRecord(ctx context.Context, adv *entities.DespatchAdvice) ValidationReport {
	issues, warnings := document.ValidateDespatchXML(adv.XML)

	report := ValidationReport{Status: "Valid", Warnings: warnings}
	next := entities.DespatchStatusValid
	if len(issues) > 0 {
		report.Status = "Invalid"
		report.Issues = issues
		next = entities.DespatchStatusInvalid
	}

	status := string(next)
	if _, err := s.repo.UpdateDocument(ctx, adv.DespatchID, entities.DocumentPatch{Status: &status}); err != nil {
		s.logger.ErrorContext(ctx, "failed to update despatch status", slog.Any("error", err))
	} else {
		adv.Status = next
	}
	return report
}

// GetDespatch returns the stored despatch advice record.
func (s *DespatchService) GetDespatch(ctx context.Context, despatchID string) (entities.DespatchAdvice, error) {
	return s.repo.FindDespatch(ctx, despatchID)
}

// GetDespatchXML returns the stored document for a despatch advice,
// serving repeat reads from the cache.
func (s *DespatchService) GetDespatchXML(ctx context.Context, despatchID string) (string, error) {
	if xml, ok := s.cache.Get(despatchID); ok {
		return xml, nil
	}

	adv, err := s.repo.FindDespatch(ctx, despatchID)
	if err != nil {
		return "", err
	}
	s.cache.Set(despatchID, adv.XML)
	return adv.XML, nil
}

// ValidateDespatch re-validates the stored document of a despatch.
func (s *DespatchService) ValidateDespatch(ctx context.Context, despatchID string) (ValidationReport, error) {
	adv, err := s.repo.FindDespatch(ctx, despatchID)
	if err != nil {
		return ValidationReport{}, err
	}

	issues, warnings := document.ValidateDespatchXML(adv.XML)
	report := ValidationReport{Status: "Valid", Warnings: warnings}
	if len(issues) > 0 {
		report.Status = "Invalid"
		report.Issues = issues
		report.Warnings = nil
	}
	return report, nil
}

// UpdateDespatch replaces the stored document, syntax-checking the new
// XML before touching storage.
func (s *DespatchService) UpdateDespatch(ctx context.Context, despatchID, xml string, status *string) error {
	if err := document.CheckSyntax(xml); err != nil {
		return err
	}

	if _, err := s.repo.FindDespatch(ctx, despatchID); err != nil {
		return err
	}

	patch := entities.DocumentPatch{XML: &xml, Status: status}
	if patch.Status == nil {
		updated := string(entities.DespatchStatusUpdated)
		patch.Status = &updated
	}
	ok, err := s.repo.UpdateDocument(ctx, despatchID, patch)
	if err != nil {
		return fmt.Errorf("failed to update despatch: %w", err)
	}
	if !ok {
		return entities.ErrDespatchNotFound
	}
	s.cache.Set(despatchID, xml)
	return nil
}

// DeleteDespatch removes a despatch advice after verifying it exists.
func (s *DespatchService) DeleteDespatch(ctx context.Context, despatchID string) error {
	if _, err := s.repo.FindDespatch(ctx, despatchID); err != nil {
		return err
	}
	ok, err := s.repo.DeleteDocument(ctx, despatchID)
	if err != nil {
		return fmt.Errorf("failed to delete despatch: %w", err)
	}
	if !ok {
		return entities.ErrDespatchNotFound
	}
	s.cache.Delete(despatchID)
	return nil
}

// CreateShipment validates the identifier format before any storage
// access and generates the consignment id when absent.
func (s *DespatchService) CreateShipment(ctx context.Context, sh *entities.Shipment) error {
	if !entities.ShipmentIDPattern.MatchString(sh.ID) {
		return reject(http.StatusBadRequest, "Invalid shipment ID format: %s", sh.ID)
	}
	if sh.ConsignmentID == "" {
		sh.ConsignmentID = uuid.NewString()
	}

	if _, err := s.repo.InsertShipment(ctx, *sh); err != nil {
		if errors.Is(err, entities.ErrShipmentExists) {
			return reject(http.StatusConflict, "Duplicate shipment ID")
		}
		return fmt.Errorf("failed to insert shipment: %w", err)
	}
	return nil
}

var storageRetryConfig = utils.RetryConfig{
	InitialDelay: 100 * time.Millisecond,
	MaxAttempts:  5,
	Multiplier:   2,
}

func noteOrDefault(note string) string {
	if note == "" {
		return defaultDespatchNote
	}
	return note
}

func derefAmount(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// randomHexID yields the eight uppercase hex characters used by the
// ORD- and D- identifier formats.
func randomHexID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
