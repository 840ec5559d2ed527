// Package forms reads the AcroForm field tree of a PDF.
package forms

import (
	"strings"

	"github.com/digitorus/pdf"

	pdfenc "github.com/digitorus/pdffill/internal/pdf"
)

// Field flags (Ff) used when filling and flattening.
const (
	FlagMultiline  = 1 << 12
	FlagPassword   = 1 << 13
	FlagRadio      = 1 << 15
	FlagPushbutton = 1 << 16
)

// Annotation flags (F) of widgets.
const (
	AnnotHidden = 1 << 1
	AnnotNoView = 1 << 5
)

// FormField represents a terminal form field in the document.
type FormField struct {
	Name  string
	Type  string // "Tx", "Btn", "Ch" or "Sig"
	Value string
	Flags int
	DA    string
	Align int

	// Object is the field dictionary, Widgets its widget annotations. For a
	// field with a single merged widget both refer to the same object.
	Object  pdf.Value
	Widgets []pdf.Value
}

// Multiline reports whether a text field spans several lines.
func (f *FormField) Multiline() bool { return f.Type == "Tx" && f.Flags&FlagMultiline != 0 }

// Password reports whether a text field masks its value.
func (f *FormField) Password() bool { return f.Type == "Tx" && f.Flags&FlagPassword != 0 }

// Radio reports whether a button field is a radio button group.
func (f *FormField) Radio() bool { return f.Type == "Btn" && f.Flags&FlagRadio != 0 }

// Pushbutton reports whether a button field has no value.
func (f *FormField) Pushbutton() bool { return f.Type == "Btn" && f.Flags&FlagPushbutton != 0 }

// Extract returns all terminal form fields found in the PDF, in field tree
// order.
func Extract(r *pdf.Reader) []FormField {
	if r == nil {
		return nil
	}

	acroForm := r.Trailer().Key("Root").Key("AcroForm")
	if acroForm.IsNull() {
		return nil
	}

	fields := acroForm.Key("Fields")
	if fields.Kind() != pdf.Array {
		return nil
	}

	defaults := FormField{
		DA:    acroForm.Key("DA").Text(),
		Align: int(acroForm.Key("Q").Int64()),
	}

	var result []FormField
	seen := make(map[pdfenc.Ptr]bool)
	for i := 0; i < fields.Len(); i++ {
		result = append(result, extractFieldsRec(fields.Index(i), "", defaults, seen, 0)...)
	}
	return result
}

func extractFieldsRec(v pdf.Value, prefix string, defaults FormField, seen map[pdfenc.Ptr]bool, depth int) []FormField {
	if v.Kind() != pdf.Dict || depth > 32 {
		return nil
	}
	if ptr := pdfenc.PtrOf(v); ptr.ID != 0 {
		if seen[ptr] {
			return nil
		}
		seen[ptr] = true
	}

	name := prefix
	if t := v.Key("T"); !t.IsNull() {
		if name != "" {
			name += "."
		}
		name += t.Text()
	}

	var result []FormField
	var widgets []pdf.Value
	kids := v.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		kid := kids.Index(i)
		if kid.Key("T").IsNull() {
			widgets = append(widgets, kid)
			continue
		}
		result = append(result, extractFieldsRec(kid, name, defaults, seen, depth+1)...)
	}

	if kids.Len() == 0 {
		widgets = []pdf.Value{v}
	}
	if len(widgets) == 0 {
		return result
	}

	field := FormField{
		Name:    name,
		Type:    pdfenc.Inherited(v, "FT").Name(),
		Value:   valueString(pdfenc.Inherited(v, "V")),
		Flags:   int(pdfenc.Inherited(v, "Ff").Int64()),
		DA:      defaults.DA,
		Align:   defaults.Align,
		Object:  v,
		Widgets: widgets,
	}
	if da := pdfenc.Inherited(v, "DA"); !da.IsNull() {
		field.DA = da.Text()
	}
	if q := pdfenc.Inherited(v, "Q"); !q.IsNull() {
		field.Align = int(q.Int64())
	}
	return append([]FormField{field}, result...)
}

func valueString(v pdf.Value) string {
	switch v.Kind() {
	case pdf.String:
		return v.Text()
	case pdf.Name:
		return v.Name()
	case pdf.Array:
		parts := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			parts = append(parts, valueString(v.Index(i)))
		}
		return strings.Join(parts, ", ")
	case pdf.Integer, pdf.Real, pdf.Bool:
		return v.String()
	}
	return ""
}

// MapFields indexes fields by their fully qualified name.
func MapFields(fields []FormField) map[string]*FormField {
	m := make(map[string]*FormField, len(fields))
	for i := range fields {
		m[fields[i].Name] = &fields[i]
	}
	return m
}

// MapWidgets indexes fields by the object number of each of their widgets.
func MapWidgets(fields []FormField) map[uint32]*FormField {
	m := make(map[uint32]*FormField)
	for i := range fields {
		for _, w := range fields[i].Widgets {
			if id := pdfenc.PtrOf(w).ID; id != 0 {
				m[id] = &fields[i]
			}
		}
	}
	return m
}
