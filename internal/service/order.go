package service

import (
	"context"
	"net/http"

	"github.com/despatchhub/despatch-service/internal/entities"
)

// CreateOrder validates an inbound order document and persists the
// resulting order record without assembling a despatch advice.
func (s *DespatchService) CreateOrder(ctx context.Context, raw string, supplier *entities.PartySnapshot) (entities.Order, []string, error) {
	ok, issues, doc := ValidateOrderXML(raw)
	if !ok {
		return entities.Order{}, issues, reject(http.StatusBadRequest, "Order validation failed")
	}

	order, err := s.createOrderFromDocument(ctx, doc, supplier)
	if err != nil {
		return entities.Order{}, nil, err
	}
	return order, nil, nil
}

// GetOrder resolves an order by correlation key: document UUID first,
// assigned order id second.
func (s *DespatchService) GetOrder(ctx context.Context, key string) (entities.Order, error) {
	return s.lookupOrder(ctx, key)
}

// ValidateStoredOrder re-checks a persisted order and reports its
// issues without changing any state.
func (s *DespatchService) ValidateStoredOrder(ctx context.Context, key string) (ValidationReport, error) {
	order, err := s.lookupOrder(ctx, key)
	if err != nil {
		return ValidationReport{}, err
	}

	issues := validateStoredOrder(order)
	report := ValidationReport{Status: "Valid"}
	if len(issues) > 0 {
		report.Status = "Invalid"
		report.Issues = issues
	}
	return report, nil
}
