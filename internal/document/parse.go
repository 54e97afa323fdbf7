package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/shopspring/decimal"
)

var (
	// ErrDocumentParse wraps every malformed or empty input document.
	ErrDocumentParse = errors.New("malformed document")

	// ErrUnsupportedDocumentType is returned by Serialize for an
	// unknown document-type selector.
	ErrUnsupportedDocumentType = errors.New("unsupported document type")
)

// node is a parsed XML element. Lookups match on local names so the
// two UBL prefixes resolve the same way regardless of how the source
// binds them.
type node struct {
	name     xml.Name
	text     string
	children []*node
}

func parseTree(raw string) (*node, error) {
	dec := xml.NewDecoder(strings.NewReader(raw))

	var root *node
	var stack []*node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end element %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element %s", stack[len(stack)-1].name.Local)
	}
	return root, nil
}

// find returns the first descendant with the given local name, in
// document order.
func (n *node) find(local string) *node {
	for _, c := range n.children {
		if c.name.Local == local {
			return c
		}
		if found := c.find(local); found != nil {
			return found
		}
	}
	return nil
}

// findAll collects every descendant with the given local name.
func (n *node) findAll(local string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.name.Local == local {
			out = append(out, c)
		}
		out = append(out, c.findAll(local)...)
	}
	return out
}

// findPath walks nested local names, taking the first match at each step.
func (n *node) findPath(locals ...string) *node {
	cur := n
	for _, local := range locals {
		cur = cur.find(local)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (n *node) value() string {
	return strings.TrimSpace(n.text)
}

// Convert parses a UBL order document into its typed record. Optional
// elements that are absent stay at their zero values; a present item
// quantity or price that fails to parse defaults to zero rather than
// failing the whole document. Empty input and syntax errors fail with
// ErrDocumentParse carrying the decoder message.
func Convert(raw string) (*entities.OrderDocument, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty or null input", ErrDocumentParse)
	}

	root, err := parseTree(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}

	doc := &entities.OrderDocument{}

	if el := root.find("ID"); el != nil {
		doc.ID = el.value()
	}
	if el := root.find("UUID"); el != nil {
		doc.UUID = el.value()
	}
	if el := root.find("IssueDate"); el != nil {
		doc.IssueDate = el.value()
	}
	if el := root.find("CopyIndicator"); el != nil {
		v := strings.EqualFold(el.value(), "true")
		doc.CopyIndicator = &v
	}
	if el := root.find("DocumentStatusCode"); el != nil {
		doc.DocumentStatusCode = el.value()
	}
	if el := root.find("Note"); el != nil {
		doc.Note = el.value()
	}
	if el := root.find("BuyerReference"); el != nil {
		doc.CustomerID = el.value()
	}

	for _, line := range root.findAll("OrderLine") {
		lineItem := line.find("LineItem")
		if lineItem == nil {
			continue
		}
		item := entities.DocumentItem{}
		if el := lineItem.findPath("Item", "SellersItemIdentification", "ID"); el != nil {
			item.ItemID = el.value()
		}
		if el := lineItem.find("Quantity"); el != nil {
			item.Quantity = parseAmount(el.value())
		}
		if el := lineItem.findPath("Price", "PriceAmount"); el != nil {
			item.Price = parseAmount(el.value())
		}
		doc.Items = append(doc.Items, item)
	}

	return doc, nil
}

// parseAmount parses a decimal amount, falling back to zero on failure.
// The element was present, so the field is present too.
func parseAmount(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		d = decimal.Zero
	}
	return &d
}
