// Package testpdf builds small form PDFs for tests.
package testpdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	pdflib "github.com/digitorus/pdf"
)

// Field describes a form field of the generated template.
type Field struct {
	Name string
	// Type is the field type without slash: Tx, Btn or Ch.
	Type  string
	Rect  [4]float64
	Value string
	DA    string
	Q     int
	Flags int
	// OnState is the checked appearance state of a Btn field.
	OnState string
	// Hidden sets the Hidden annotation flag.
	Hidden bool
	// Kid places the widget in a separate /Kids object.
	Kid bool
	// Appearance is written as the /AP /N stream of a text field.
	Appearance string
	// Parent puts the field below a non-terminal field with this name.
	Parent string
}

// Options configures the generated template.
type Options struct {
	Fields []Field
	// XFA adds an /XFA array with template and datasets packets.
	XFA bool
	// Datasets overrides the datasets packet.
	Datasets string
	// XrefStream writes a cross-reference stream instead of a table.
	XrefStream bool
	// Info adds entries to the document information dictionary.
	Info map[string]string
	// InfoRaw adds information entries given in raw PDF syntax.
	InfoRaw map[string]string
	// Encrypt adds a dummy /Encrypt entry to the trailer.
	Encrypt bool
	// ExtraAnnot adds a non-widget link annotation to the page.
	ExtraAnnot bool
}

// DefaultDatasets is the datasets packet used when Options.Datasets is empty.
const DefaultDatasets = `<xfa:datasets xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/">
<xfa:data>
<form1><page1><name>Template</name></page1></form1>
</xfa:data>
</xfa:datasets>`

const templatePacket = `<template xmlns="http://www.xfa.org/schema/xfa-template/2.8/"><subform name="form1"><subform name="page1"><field name="name"/><field name="date"/></subform></subform></template>`

type builder struct {
	objects []string
}

func (b *builder) add(body string) int {
	b.objects = append(b.objects, body)
	return len(b.objects)
}

func (b *builder) set(id int, body string) {
	b.objects[id-1] = body
}

func stream(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

func literal(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "(", "\\(", ")", "\\)")
	return "(" + r.Replace(s) + ")"
}

// Build returns the bytes of a one page PDF carrying the configured form.
func Build(opts Options) []byte {
	b := &builder{}
	catalog := b.add("")
	pages := b.add("")
	page := b.add("")
	acroForm := b.add("")
	content := b.add(stream("", "BT /Helv 24 Tf 72 720 Td (Certificate of Completion) Tj ET"))
	font := b.add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var fieldRefs, annotRefs []string
	parents := make(map[string]int)
	parentKids := make(map[string][]string)

	for _, f := range opts.Fields {
		da := f.DA
		if da == "" {
			da = "/Helv 0 Tf 0 g"
		}
		flags := 4
		if f.Hidden {
			flags |= 2
		}

		widget := fmt.Sprintf("/Type /Annot /Subtype /Widget /Rect [%g %g %g %g] /F %d /P %d 0 R",
			f.Rect[0], f.Rect[1], f.Rect[2], f.Rect[3], flags, page)
		width := f.Rect[2] - f.Rect[0]
		height := f.Rect[3] - f.Rect[1]

		switch f.Type {
		case "Btn":
			on := f.OnState
			if on == "" {
				on = "Yes"
			}
			onAP := b.add(stream(fmt.Sprintf("/Type /XObject /Subtype /Form /BBox [0 0 %g %g]", width, height), "q 0 g BT /ZaDb 10 Tf 2 2 Td (4) Tj ET Q"))
			offAP := b.add(stream(fmt.Sprintf("/Type /XObject /Subtype /Form /BBox [0 0 %g %g]", width, height), "% off"))
			state := "Off"
			if f.Value != "" {
				state = f.Value
			}
			widget += fmt.Sprintf(" /AP << /N << /%s %d 0 R /Off %d 0 R >> >> /AS /%s", on, onAP, offAP, state)
		default:
			if f.Appearance != "" {
				ap := b.add(stream(fmt.Sprintf("/Type /XObject /Subtype /Form /BBox [0 0 %g %g] /Resources << /Font << /Helv %d 0 R >> >>", width, height, font), f.Appearance))
				widget += fmt.Sprintf(" /AP << /N %d 0 R >>", ap)
			}
		}

		typ := f.Type
		if typ == "" {
			typ = "Tx"
		}
		field := fmt.Sprintf("/FT /%s /T %s /DA %s", typ, literal(f.Name), literal(da))
		if f.Q != 0 {
			field += fmt.Sprintf(" /Q %d", f.Q)
		}
		if f.Flags != 0 {
			field += fmt.Sprintf(" /Ff %d", f.Flags)
		}
		if f.Value != "" {
			if typ == "Btn" {
				field += " /V /" + f.Value
			} else {
				field += " /V " + literal(f.Value)
			}
		}

		var fieldID, widgetID int
		if f.Kid {
			fieldID = b.add("")
			widgetID = b.add(fmt.Sprintf("<< %s /Parent %d 0 R >>", widget, fieldID))
			b.set(fieldID, fmt.Sprintf("<< %s /Kids [%d 0 R] >>", field, widgetID))
		} else {
			fieldID = b.add(fmt.Sprintf("<< %s %s >>", field, widget))
			widgetID = fieldID
		}
		annotRefs = append(annotRefs, fmt.Sprintf("%d 0 R", widgetID))

		if f.Parent == "" {
			fieldRefs = append(fieldRefs, fmt.Sprintf("%d 0 R", fieldID))
			continue
		}
		if _, ok := parents[f.Parent]; !ok {
			parents[f.Parent] = b.add("")
			fieldRefs = append(fieldRefs, fmt.Sprintf("%d 0 R", parents[f.Parent]))
		}
		parentKids[f.Parent] = append(parentKids[f.Parent], fmt.Sprintf("%d 0 R", fieldID))
		b.set(fieldID, strings.Replace(b.objects[fieldID-1], "<< ", fmt.Sprintf("<< /Parent %d 0 R ", parents[f.Parent]), 1))
	}
	for name, id := range parents {
		b.set(id, fmt.Sprintf("<< /T %s /Kids [%s] >>", literal(name), strings.Join(parentKids[name], " ")))
	}

	if opts.ExtraAnnot {
		link := b.add("<< /Type /Annot /Subtype /Link /Rect [10 10 50 50] /Border [0 0 0] >>")
		annotRefs = append(annotRefs, fmt.Sprintf("%d 0 R", link))
	}

	form := fmt.Sprintf("/Fields [%s] /DR << /Font << /Helv %d 0 R >> >> /DA (/Helv 0 Tf 0 g)", strings.Join(fieldRefs, " "), font)
	if opts.XFA {
		datasets := opts.Datasets
		if datasets == "" {
			datasets = DefaultDatasets
		}
		tpl := b.add(stream("", templatePacket))
		ds := b.add(stream("", datasets))
		form += fmt.Sprintf(" /XFA [(template) %d 0 R (datasets) %d 0 R]", tpl, ds)
	}
	b.set(acroForm, "<< "+form+" >>")

	b.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R /AcroForm %d 0 R >>", pages, acroForm))
	b.set(pages, fmt.Sprintf("<< /Type /Pages /Kids [%d 0 R] /Count 1 >>", page))
	annots := ""
	if len(annotRefs) > 0 {
		annots = " /Annots [" + strings.Join(annotRefs, " ") + "]"
	}
	b.set(page, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /Helv %d 0 R >> >>%s >>", pages, content, font, annots))

	info := 0
	if len(opts.Info) > 0 || len(opts.InfoRaw) > 0 {
		var entries []string
		for k, v := range opts.Info {
			entries = append(entries, "/"+k+" "+literal(v))
		}
		for k, v := range opts.InfoRaw {
			entries = append(entries, "/"+k+" "+v)
		}
		info = b.add("<< " + strings.Join(entries, " ") + " >>")
	}

	return b.write(catalog, info, opts)
}

func (b *builder) write(root, info int, opts Options) []byte {
	var out bytes.Buffer
	out.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(b.objects)+1)
	for i, body := range b.objects {
		offsets[i+1] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	trailer := fmt.Sprintf("/Root %d 0 R /ID [<0123456789abcdef0123456789abcdef> <0123456789abcdef0123456789abcdef>]", root)
	if info != 0 {
		trailer += fmt.Sprintf(" /Info %d 0 R", info)
	}
	if opts.Encrypt {
		trailer += " /Encrypt << /Filter /Standard /V 1 /R 2 /O <00> /U <00> /P -4 >>"
	}

	if opts.XrefStream {
		xrefID := len(b.objects) + 1
		xrefOffset := out.Len()
		var data bytes.Buffer
		data.Write([]byte{0, 0, 0, 0, 0, 0xff})
		for i := 1; i < xrefID; i++ {
			o := offsets[i]
			data.Write([]byte{1, byte(o >> 24), byte(o >> 16), byte(o >> 8), byte(o), 0})
		}
		data.Write([]byte{1, byte(xrefOffset >> 24), byte(xrefOffset >> 16), byte(xrefOffset >> 8), byte(xrefOffset), 0})
		fmt.Fprintf(&out, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 1] %s /Length %d >>\nstream\n", xrefID, xrefID+1, trailer, data.Len())
		out.Write(data.Bytes())
		fmt.Fprintf(&out, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
		return out.Bytes()
	}

	xrefOffset := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(b.objects)+1)
	out.WriteString("0000000000 65535 f\r\n")
	for i := 1; i <= len(b.objects); i++ {
		fmt.Fprintf(&out, "%010d 00000 n\r\n", offsets[i])
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", len(b.objects)+1, trailer, xrefOffset)
	return out.Bytes()
}

// WriteFile writes the generated template into dir and returns its path.
func WriteFile(t testing.TB, dir string, opts Options) string {
	t.Helper()
	path := filepath.Join(dir, "template.pdf")
	if err := os.WriteFile(path, Build(opts), 0o644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
	return path
}

// Open parses PDF bytes with the reader used by the module.
func Open(t testing.TB, data []byte) *pdflib.Reader {
	t.Helper()
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to parse PDF: %v", err)
	}
	return r
}

// OpenFile parses the PDF file at path.
func OpenFile(t testing.TB, path string) *pdflib.Reader {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return Open(t, data)
}

var showText = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)

// PageTexts returns the strings shown by the form XObjects drawn on a page,
// keyed by XObject resource name.
func PageTexts(t testing.TB, r *pdflib.Reader, pageNum int) map[string][]string {
	t.Helper()
	out := make(map[string][]string)
	xobjects := r.Page(pageNum).V.Key("Resources").Key("XObject")
	for _, name := range xobjects.Keys() {
		rc := xobjects.Key(name).Reader()
		if rc == nil {
			continue
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatalf("failed to read XObject %s: %v", name, err)
		}
		_ = rc.Close()
		for _, m := range showText.FindAllStringSubmatch(buf.String(), -1) {
			out[name] = append(out[name], Unescape(m[1]))
		}
	}
	return out
}

// Unescape decodes the body of a PDF literal string.
func Unescape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := 0
			j := 0
			for ; j < 3 && i+j < len(s) && s[i+j] >= '0' && s[i+j] <= '7'; j++ {
				v = v*8 + int(s[i+j]-'0')
			}
			i += j - 1
			sb.WriteByte(byte(v))
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
