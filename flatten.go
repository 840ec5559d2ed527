package pdffill

import (
	"bytes"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/digitorus/pdf"

	"github.com/digitorus/pdffill/fonts"
	"github.com/digitorus/pdffill/forms"
	pdfenc "github.com/digitorus/pdffill/internal/pdf"
	"github.com/digitorus/pdffill/internal/render"
	"github.com/digitorus/pdffill/update"
)

// xobjectPrefix names the form XObjects added to page resources.
const xobjectPrefix = "FlatFx"

// flattener draws the widgets of the AcroForm onto their pages.
type flattener struct {
	context  *update.Context
	renderer *render.Renderer
	values   map[string]string
	widgets  map[uint32]*forms.FormField
	logger   *log.Logger

	flattened int
	pages     int
}

// draw is a form XObject placed onto a page.
type draw struct {
	ref    string
	bbox   [4]float64
	matrix [6]float64
	rect   [4]float64
}

func (f *flattener) flatten(r *pdf.Reader) error {
	for i := 1; i <= r.NumPage(); i++ {
		if err := f.flattenPage(r.Page(i).V); err != nil {
			return fmt.Errorf("page %d: %w", i, err)
		}
	}
	return nil
}

func (f *flattener) flattenPage(page pdf.Value) error {
	annots := page.Key("Annots")
	if annots.Kind() != pdf.Array || annots.Len() == 0 {
		return nil
	}
	owner := pdfenc.PtrOf(annots)

	var keep []string
	var draws []draw
	changed := false
	for i := 0; i < annots.Len(); i++ {
		annot := annots.Index(i)
		ptr := pdfenc.PtrOf(annot)

		field, ok := f.widgets[ptr.ID]
		if ptr == owner || !ok || annot.Key("Subtype").Name() != "Widget" {
			if ptr == owner {
				keep = append(keep, string(pdfenc.Serialize(annot)))
			} else {
				keep = append(keep, ptr.Ref())
			}
			continue
		}

		changed = true
		if annot.Key("F").Int64()&(forms.AnnotHidden|forms.AnnotNoView) != 0 {
			continue
		}
		d, ok, err := f.appearance(field, annot)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		if ok {
			draws = append(draws, d)
		}
	}
	if !changed {
		return nil
	}
	return f.rewritePage(page, keep, draws)
}

// appearance selects or generates the appearance stream a widget is drawn
// with. It reports false for widgets without a visible appearance.
func (f *flattener) appearance(field *forms.FormField, widget pdf.Value) (draw, bool, error) {
	rect := pdfenc.Rect(widget.Key("Rect"))
	value, supplied := f.values[field.Name]
	normal := widget.Key("AP").Key("N")

	switch field.Type {
	case "Tx", "Ch":
		if !supplied {
			if normal.Kind() == pdf.Stream {
				return existing(normal, rect)
			}
			if field.Value == "" {
				return draw{}, false, nil
			}
			value = field.Value
		}
		if lost := fonts.Unencodable(value); len(lost) > 0 {
			f.logger.Printf("field %q: %d character(s) not in WinAnsiEncoding replaced by '?'", field.Name, len(lost))
		}
		id, err := f.renderer.Text(textField(field, widget, value, rect))
		if err != nil {
			return draw{}, false, err
		}
		return draw{
			ref:    pdfenc.Ref(id, 0),
			bbox:   [4]float64{0, 0, rect[2] - rect[0], rect[3] - rect[1]},
			matrix: [6]float64{1, 0, 0, 1, 0, 0},
			rect:   rect,
		}, true, nil

	case "Btn":
		if field.Pushbutton() {
			break
		}
		state := forms.CurrentState(widget)
		if supplied {
			state = forms.ButtonState(widget, value, field.Radio())
		}
		return existing(normal.Key(state), rect)
	}

	if normal.Kind() == pdf.Dict {
		return existing(normal.Key(forms.CurrentState(widget)), rect)
	}
	return existing(normal, rect)
}

func existing(stream pdf.Value, rect [4]float64) (draw, bool, error) {
	if stream.Kind() != pdf.Stream {
		return draw{}, false, nil
	}
	return draw{
		ref:    pdfenc.PtrOf(stream).Ref(),
		bbox:   pdfenc.Rect(stream.Key("BBox")),
		matrix: pdfenc.Matrix(stream.Key("Matrix")),
		rect:   rect,
	}, true, nil
}

func textField(field *forms.FormField, widget pdf.Value, value string, rect [4]float64) render.Field {
	tf := render.Field{
		Value:     value,
		Rect:      rect,
		DA:        field.DA,
		Align:     render.TextAlign(field.Align),
		Multiline: field.Multiline(),
		Password:  field.Password(),
	}
	if da := widget.Key("DA"); da.Kind() == pdf.String {
		tf.DA = da.Text()
	}
	if q := widget.Key("Q"); q.Kind() == pdf.Integer {
		tf.Align = render.TextAlign(q.Int64())
	}

	mk := widget.Key("MK")
	tf.Background = color(mk.Key("BG"))
	tf.Border = color(mk.Key("BC"))
	if len(tf.Border) > 0 {
		tf.BorderWidth = 1
		if w := widget.Key("BS").Key("W"); !w.IsNull() {
			tf.BorderWidth = w.Float64()
		}
	}
	return tf
}

func color(v pdf.Value) render.Color {
	if v.Kind() != pdf.Array || v.Len() == 0 {
		return nil
	}
	c := make(render.Color, v.Len())
	for i := range c {
		c[i] = v.Index(i).Float64()
	}
	return c
}

// placement returns the matrix mapping the transformed bounding box of an
// appearance onto the widget rectangle.
func placement(d draw) ([6]float64, bool) {
	m := d.matrix
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [][2]float64{
		{d.bbox[0], d.bbox[1]}, {d.bbox[2], d.bbox[1]},
		{d.bbox[0], d.bbox[3]}, {d.bbox[2], d.bbox[3]},
	} {
		x := m[0]*p[0] + m[2]*p[1] + m[4]
		y := m[1]*p[0] + m[3]*p[1] + m[5]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	w, h := maxX-minX, maxY-minY
	if w <= 0 || h <= 0 {
		return [6]float64{}, false
	}
	sx := (d.rect[2] - d.rect[0]) / w
	sy := (d.rect[3] - d.rect[1]) / h
	return [6]float64{sx, 0, 0, sy, d.rect[0] - minX*sx, d.rect[1] - minY*sy}, true
}

// rewritePage replaces the page object with one that draws the flattened
// widgets after the original content and only keeps the remaining
// annotations.
func (f *flattener) rewritePage(page pdf.Value, keep []string, draws []draw) error {
	resources := pdfenc.Inherited(page, "Resources")
	xobjects := pdfenc.SerializeEntries(resources.Key("XObject"))

	var content bytes.Buffer
	content.WriteString("Q\n")
	n := 0
	for _, d := range draws {
		cm, ok := placement(d)
		if !ok {
			continue
		}
		var name string
		for {
			n++
			name = fmt.Sprintf("%s%d", xobjectPrefix, n)
			if _, taken := xobjects[name]; !taken {
				break
			}
		}
		xobjects[name] = d.ref

		nums := make([]string, len(cm))
		for i, v := range cm {
			nums[i] = pdfenc.Number(v)
		}
		fmt.Fprintf(&content, "q %s cm %s Do Q\n", strings.Join(nums, " "), pdfenc.Name(name))
		f.flattened++
	}

	set := make(map[string]string)
	if n > 0 {
		entries := pdfenc.SerializeEntries(resources, "XObject")
		entries["XObject"] = dict(xobjects)
		set["Resources"] = dict(entries)

		saveID, err := f.context.AddStream("", []byte("q\n"))
		if err != nil {
			return err
		}
		drawID, err := f.context.AddStream("", content.Bytes())
		if err != nil {
			return err
		}
		contents := []string{pdfenc.Ref(saveID, 0)}
		switch c := page.Key("Contents"); c.Kind() {
		case pdf.Stream:
			contents = append(contents, pdfenc.PtrOf(c).Ref())
		case pdf.Array:
			for i := 0; i < c.Len(); i++ {
				contents = append(contents, pdfenc.PtrOf(c.Index(i)).Ref())
			}
		}
		contents = append(contents, pdfenc.Ref(drawID, 0))
		set["Contents"] = "[" + strings.Join(contents, " ") + "]"
	}

	drop := []string{"Annots"}
	if len(keep) > 0 {
		set["Annots"] = "[" + strings.Join(keep, " ") + "]"
		drop = nil
	}

	ptr := pdfenc.PtrOf(page)
	if err := f.context.UpdateObject(ptr.ID, ptr.Gen, pdfenc.SerializeDict(page, set, drop...)); err != nil {
		return err
	}
	f.pages++
	return nil
}

// dict writes entries as a direct dictionary with sorted keys.
func dict(entries map[string]string) string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<<")
	for _, k := range keys {
		b.WriteString(" " + pdfenc.Name(k) + " " + entries[k])
	}
	b.WriteString(" >>")
	return b.String()
}
