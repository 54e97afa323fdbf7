package document

import (
	"fmt"
	"strings"
)

// CheckSyntax verifies that a document is well formed without
// extracting anything from it.
func CheckSyntax(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty or null input", ErrDocumentParse)
	}
	if _, err := parseTree(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}
	return nil
}

// despatch advice structural expectations: required elements fail
// validation, recommended elements only warn.
var (
	despatchRequiredElements    = []string{"ID", "IssueDate"}
	despatchRecommendedElements = []string{"DespatchSupplierParty", "DeliveryCustomerParty", "Shipment"}
)

// ValidateDespatchXML inspects a stored despatch advice document.
// Returned issues make the document Invalid; warnings do not.
func ValidateDespatchXML(raw string) (issues, warnings []string) {
	root, err := parseTree(raw)
	if err != nil {
		issues = append(issues, fmt.Sprintf("XML syntax error: %v", err))
		return issues, nil
	}

	for _, name := range despatchRequiredElements {
		if root.find(name) == nil {
			issues = append(issues, fmt.Sprintf("Missing required element: %s", name))
		}
	}
	for _, name := range despatchRecommendedElements {
		if root.find(name) == nil {
			warnings = append(warnings, fmt.Sprintf("Missing recommended element: %s", name))
		}
	}
	return issues, warnings
}
