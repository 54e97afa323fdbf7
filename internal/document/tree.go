package document

import (
	"encoding/xml"
	"strings"
)

// UBL namespace constants. The basic (cbc) prefix carries scalar fields,
// the aggregate (cac) prefix carries component blocks.
const (
	schemaStart = "urn:oasis:names:specification:ubl:schema:xsd:"

	nsOrder    = schemaStart + "Order-2"
	nsDespatch = schemaStart + "DespatchAdvice-2"
	nsBasic    = schemaStart + "CommonBasicComponents-2"
	nsAggegate = schemaStart + "CommonAggregateComponents-2"
)

// element is a minimal XML tree node. Documents are built as trees and
// rendered by a single escaping writer, so no hand-concatenated markup
// ever reaches the output.
type element struct {
	tag      string
	attrs    []attribute
	text     string
	children []*element
}

type attribute struct {
	key   string
	value string
}

func newElement(tag string) *element {
	return &element{tag: tag}
}

func (e *element) setAttr(key, value string) *element {
	e.attrs = append(e.attrs, attribute{key: key, value: value})
	return e
}

// leaf appends a child element holding only text.
func (e *element) leaf(tag, text string) *element {
	child := &element{tag: tag, text: text}
	e.children = append(e.children, child)
	return child
}

// node appends an empty child element for further nesting.
func (e *element) node(tag string) *element {
	child := &element{tag: tag}
	e.children = append(e.children, child)
	return child
}

// render writes the tree as an XML document with a standard declaration.
func render(root *element) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	writeElement(&b, root, 0)
	return b.String()
}

func writeElement(b *strings.Builder, e *element, depth int) {
	indent := strings.Repeat("    ", depth)
	b.WriteString(indent)
	b.WriteByte('<')
	b.WriteString(e.tag)
	for _, a := range e.attrs {
		b.WriteByte(' ')
		b.WriteString(a.key)
		b.WriteString(`="`)
		b.WriteString(escape(a.value))
		b.WriteString(`"`)
	}
	b.WriteByte('>')

	if len(e.children) == 0 {
		b.WriteString(escape(e.text))
		b.WriteString("</")
		b.WriteString(e.tag)
		b.WriteString(">\n")
		return
	}

	b.WriteByte('\n')
	for _, child := range e.children {
		writeElement(b, child, depth+1)
	}
	b.WriteString(indent)
	b.WriteString("</")
	b.WriteString(e.tag)
	b.WriteString(">\n")
}

func escape(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	// strings.Builder never returns a write error
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
