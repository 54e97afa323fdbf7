package service

import (
	"fmt"

	"github.com/despatchhub/despatch-service/internal/document"
	"github.com/despatchhub/despatch-service/internal/entities"
)

var knownStatusCodes = map[string]struct{}{
	"NoStatus":  {},
	"Completed": {},
	"Cancelled": {},
}

// ValidateOrderXML converts an inbound order document and validates the
// result. A conversion failure is folded into the issue list as a
// single entry with a nil record: validation failure and conversion
// failure share this one reporting channel.
func ValidateOrderXML(raw string) (bool, []string, *entities.OrderDocument) {
	doc, err := document.Convert(raw)
	if err != nil {
		return false, []string{fmt.Sprintf("XML parsing error: %v", err)}, nil
	}
	ok, issues := ValidateOrderDocument(doc)
	return ok, issues, doc
}

// ValidateOrderDocument applies the structural and business rules to a
// converted order record. Issues are ordered: required top-level
// fields, then customer, then per-item in list order, then the typed
// field checks. Validity is exactly the absence of issues.
func ValidateOrderDocument(doc *entities.OrderDocument) (bool, []string) {
	issues := []string{}

	required := []struct {
		name  string
		value string
	}{
		{"ID", doc.ID},
		{"UUID", doc.UUID},
		{"IssueDate", doc.IssueDate},
	}
	for _, f := range required {
		if f.value == "" {
			issues = append(issues, fmt.Sprintf("Missing required field: %s", f.name))
		}
	}

	if doc.CustomerID == "" {
		issues = append(issues, "Missing CustomerID")
	}

	if len(doc.Items) == 0 {
		issues = append(issues, "No items in order")
	}
	for i, item := range doc.Items {
		if item.ItemID == "" {
			issues = append(issues, fmt.Sprintf("Item %d missing item_id", i))
		}
		if item.Quantity == nil || !item.Quantity.IsPositive() {
			issues = append(issues, fmt.Sprintf("Item %d has invalid quantity", i))
		}
		if item.Price == nil || item.Price.IsNegative() {
			issues = append(issues, fmt.Sprintf("Item %d has invalid price", i))
		}
	}

	if doc.DocumentStatusCode != "" {
		if _, ok := knownStatusCodes[doc.DocumentStatusCode]; !ok {
			issues = append(issues, "Invalid DocumentStatusCode")
		}
	}

	return len(issues) == 0, issues
}

// validateStoredOrder applies the per-item rules to a persisted order,
// mirroring the stored-order validation report of the HTTP API.
func validateStoredOrder(order entities.Order) []string {
	issues := []string{}

	if order.CustomerID == "" {
		issues = append(issues, "Missing customer ID")
	}
	if len(order.Items) == 0 {
		issues = append(issues, "No items in order")
	}
	for i, item := range order.Items {
		if item.ItemID == "" {
			issues = append(issues, fmt.Sprintf("Item %d missing item_id", i))
		}
		if !item.Quantity.IsPositive() {
			issues = append(issues, fmt.Sprintf("Item %d has invalid quantity", i))
		}
		if item.Price.IsNegative() {
			issues = append(issues, fmt.Sprintf("Item %d has invalid price", i))
		}
	}
	return issues
}
