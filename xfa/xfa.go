// Package xfa fills the XML Forms Architecture layer of a PDF form.
//
// Field values are serialized as an XFA data document, merged into the
// datasets packet of the template and bound to the AcroForm fields that
// render them once the XFA layer has been removed.
package xfa

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/digitorus/pdf"

	pdfenc "github.com/digitorus/pdffill/internal/pdf"
)

// DataNamespace is the namespace of the XFA datasets packet.
const DataNamespace = "http://www.xfa.org/schema/xfa-data/1.0/"

// Root and page element of generated data documents.
const (
	RootElement = "form1"
	PageElement = "page1"
)

// ErrInvalidName is returned for field names that cannot be used as XML
// element names.
var ErrInvalidName = errors.New("invalid XFA element name")

// Packet is a named part of the XFA stream.
type Packet struct {
	Name string
	Data []byte
}

// Packets returns the XFA packets of an AcroForm dictionary. A single
// stream XFA form is returned as one packet without a name. It returns no
// packets when the form has no XFA layer.
func Packets(acroForm pdf.Value) ([]Packet, error) {
	v := acroForm.Key("XFA")
	switch v.Kind() {
	case pdf.Stream:
		data, err := pdfenc.ReadStream(v)
		if err != nil {
			return nil, err
		}
		return []Packet{{Data: data}}, nil
	case pdf.Array:
		var packets []Packet
		for i := 0; i+1 < v.Len(); i += 2 {
			data, err := pdfenc.ReadStream(v.Index(i + 1))
			if err != nil {
				return nil, fmt.Errorf("failed to read XFA packet %q: %w", v.Index(i).Text(), err)
			}
			packets = append(packets, Packet{Name: v.Index(i).Text(), Data: data})
		}
		return packets, nil
	}
	return nil, nil
}

// Datasets returns the datasets packet, looking inside a single stream XDP
// document when there is no separate packet. It returns nil when the form
// has no datasets.
func Datasets(packets []Packet) []byte {
	for _, p := range packets {
		if p.Name == "datasets" {
			return p.Data
		}
	}
	for _, p := range packets {
		if start, end, ok := findElement(p.Data, "datasets", 1); ok {
			return p.Data[start:end]
		}
	}
	return nil
}

// ValidName reports whether name can be used as an unprefixed XML element
// name.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)):
		default:
			return false
		}
	}
	return true
}

// DataElement serializes values as the data document
// <form1><page1><key>value</key>...</page1></form1>, ordered by key. Values
// are XML escaped.
func DataElement(values map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if !ValidName(k) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("<" + RootElement + "><" + PageElement + ">")
	for _, k := range keys {
		v := values[k]
		if !utf8.ValidString(v) {
			return nil, fmt.Errorf("value of %q is not valid UTF-8", k)
		}
		buf.WriteString("<" + k + ">")
		if err := xml.EscapeText(&buf, []byte(v)); err != nil {
			return nil, err
		}
		buf.WriteString("</" + k + ">")
	}
	buf.WriteString("</" + PageElement + "></" + RootElement + ">")
	return buf.Bytes(), nil
}

// BuildDataXML returns the data document of DataElement with an XML
// declaration.
func BuildDataXML(values map[string]string) ([]byte, error) {
	body, err := DataElement(values)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
