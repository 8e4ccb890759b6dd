package xmlformat

import (
	"bytes"
	"encoding/xml"
	"maps"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/ginjaninja78/geo-format-converter/internal/coords"
	"github.com/ginjaninja78/geo-format-converter/internal/types"
	"github.com/ginjaninja78/geo-format-converter/internal/validation"
)

// =============================================================================
// XML ELEMENT TREE
// =============================================================================

// XMLElement is a generic element with either a text value or children.
type XMLElement struct {
	Name     string
	Value    string
	Children []XMLElement
}

// reservedElements are written from Record fields and cannot also appear as
// attribute elements. The parser matches child names case-insensitively, so
// neither can any other spelling of them.
var reservedElements = map[string]bool{"name": true, "geo": true}

// =============================================================================
// WRITER
// =============================================================================

// Writer serializes collections into the marker schema.
type Writer struct {
	opts Options
}

// NewWriter creates a Writer. Empty root or point element names fall back to
// the defaults.
func NewWriter(opts Options) *Writer {
	def := DefaultOptions()
	if opts.RootElement == "" {
		opts.RootElement = def.RootElement
	}
	if opts.PointElement == "" {
		opts.PointElement = def.PointElement
	}
	return &Writer{opts: opts}
}

// Format implements converter.Serializer.
func (w *Writer) Format() types.Format { return types.FormatXML }

// Serialize writes one point element per record, in collection order.
//
//	<marker>
//	  <name>…</name>
//	  <geo>lat, lon</geo>
//	  <attribute>…</attribute>   (sorted by key)
//	</marker>
func (w *Writer) Serialize(c types.Collection) ([]byte, error) {
	root := XMLElement{Name: w.opts.RootElement}
	for i, rec := range c {
		el, err := w.buildPointElement(i, rec)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, el)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", w.opts.Indent)
	if err := writeElement(enc, root); err != nil {
		return nil, &types.SerializeError{Format: types.FormatXML, Index: types.NoRecord, Reason: "encoding failed", Err: err}
	}
	if err := enc.Flush(); err != nil {
		return nil, &types.SerializeError{Format: types.FormatXML, Index: types.NoRecord, Reason: "encoding failed", Err: err}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// buildPointElement creates the element for a single record.
func (w *Writer) buildPointElement(index int, rec types.Record) (XMLElement, error) {
	fail := func(field string, err error) error {
		return &types.SerializeError{Format: types.FormatXML, Index: index, Name: rec.Name, Field: field, Err: err}
	}

	if ve := validation.Record(rec); ve != nil {
		return XMLElement{}, fail(ve.Field, ve)
	}

	el := XMLElement{
		Name: w.opts.PointElement,
		Children: []XMLElement{
			{Name: "name", Value: rec.Name},
			{Name: "geo", Value: coords.FormatDegrees(rec.Latitude) + ", " + coords.FormatDegrees(rec.Longitude)},
		},
	}

	for _, key := range slices.Sorted(maps.Keys(rec.Attributes)) {
		tag := w.opts.FieldMap.ForFormat(types.FormatXML, key)
		if reservedElements[strings.ToLower(tag)] {
			return XMLElement{}, fail(key, errors.Newf("attribute %q collides with the <%s> element", key, tag))
		}
		if !isValidName(tag) {
			return XMLElement{}, fail(key, errors.Newf("attribute key %q is not a valid XML element name", key))
		}
		el.Children = append(el.Children, XMLElement{Name: tag, Value: rec.Attributes[key]})
	}

	return el, nil
}

// writeElement emits an element and its children through the encoder, which
// takes care of escaping and indentation.
func writeElement(enc *xml.Encoder, el XMLElement) error {
	start := xml.StartElement{Name: xml.Name{Local: el.Name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if len(el.Children) == 0 {
		if el.Value != "" {
			if err := enc.EncodeToken(xml.CharData(el.Value)); err != nil {
				return err
			}
		}
	} else {
		for _, child := range el.Children {
			if err := writeElement(enc, child); err != nil {
				return err
			}
		}
	}
	return enc.EncodeToken(start.End())
}

// isValidName reports whether s is an XML 1.0 element name without a
// namespace prefix.
func isValidName(s string) bool {
	if s == "" {
		return false
	}
	if len(s) >= 3 && (s[0] == 'x' || s[0] == 'X') && (s[1] == 'm' || s[1] == 'M') && (s[2] == 'l' || s[2] == 'L') {
		return false
	}
	for i, r := range s {
		if r == utf8.RuneError {
			return false
		}
		if i == 0 {
			if r != '_' && !unicode.IsLetter(r) {
				return false
			}
			continue
		}
		if r != '_' && r != '-' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
