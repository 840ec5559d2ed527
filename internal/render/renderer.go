// Package render generates appearance streams for filled form fields.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/digitorus/pdffill/fonts"
	pdfenc "github.com/digitorus/pdffill/internal/pdf"
	"github.com/digitorus/pdffill/update"
)

const (
	padding        = 2.0
	minFontSize    = 4.0
	multilineStart = 12.0
	leading        = 1.15
)

// Renderer writes field appearances as form XObjects into an update. Fonts
// are written once per update and shared by all appearances.
type Renderer struct {
	context   *update.Context
	formFonts map[string]string
	font      *fonts.Font
	fontIDs   map[string]uint32
}

// New returns a renderer writing into context. formFonts maps the font
// resource names of the form's default resources to their BaseFont. When
// font is set it is used for every field instead of the font named by the
// default appearance.
func New(context *update.Context, formFonts map[string]string, font *fonts.Font) *Renderer {
	if formFonts == nil {
		formFonts = map[string]string{}
	}
	return &Renderer{
		context:   context,
		formFonts: formFonts,
		font:      font,
		fontIDs:   make(map[string]uint32),
	}
}

// FontFor returns the font used to render text in the given appearance.
func (r *Renderer) FontFor(da DA) *fonts.Font {
	if r.font != nil {
		return r.font
	}
	base := da.Font
	if b, ok := r.formFonts[da.Font]; ok {
		base = b
	}
	return fonts.ByBaseFont(base)
}

// Text writes the appearance of a text or choice field and returns the
// object number of the form XObject.
func (r *Renderer) Text(field Field) (uint32, error) {
	da := ParseDA(field.DA)
	font := r.FontFor(da)

	fontID, err := r.RegisterFont(font)
	if err != nil {
		return 0, err
	}
	fontName := da.Font
	if fontName == "" {
		fontName = "Helv"
	}

	content := Content(field, da, font, fontName)

	dict := fmt.Sprintf("/Type /XObject /Subtype /Form /FormType 1 /BBox [0 0 %s %s] /Resources << /Font << %s %d 0 R >> >>",
		pdfenc.Number(field.Width()), pdfenc.Number(field.Height()), pdfenc.Name(fontName), fontID)

	id, err := r.context.AddStream(dict, content)
	if err != nil {
		return 0, fmt.Errorf("failed to write appearance: %w", err)
	}
	return id, nil
}

// Content renders the appearance stream of a field without writing it.
func Content(field Field, da DA, font *fonts.Font, fontName string) []byte {
	w, h := field.Width(), field.Height()
	l := layoutText(field, font, da.Size)

	var stream bytes.Buffer
	stream.WriteString("/Tx BMC\nq\n")

	if fill := field.Background.Fill(); fill != "" {
		fmt.Fprintf(&stream, "%s\n0 0 %.2f %.2f re f\n", fill, w, h)
	}
	if stroke := field.Border.Stroke(); stroke != "" && field.BorderWidth > 0 {
		bw := field.BorderWidth
		fmt.Fprintf(&stream, "%s\n%.2f w\n%.2f %.2f %.2f %.2f re S\n", stroke, bw, bw/2, bw/2, w-bw, h-bw)
	}

	fmt.Fprintf(&stream, "%.2f %.2f %.2f %.2f re W n\n", padding/2, padding/2, w-padding, h-padding)
	stream.WriteString("BT\n")
	fmt.Fprintf(&stream, "%s %.2f Tf\n", pdfenc.Name(fontName), l.size)
	if fill := da.Color.Fill(); fill != "" {
		stream.WriteString(fill + "\n")
	}
	for _, ln := range l.lines {
		if len(ln.text) == 0 {
			continue
		}
		fmt.Fprintf(&stream, "1 0 0 1 %.2f %.2f Tm\n", ln.x, ln.y)
		stream.WriteString(pdfenc.Literal(ln.text) + " Tj\n")
	}
	stream.WriteString("ET\nQ\nEMC\n")
	return stream.Bytes()
}

type line struct {
	text []byte
	x, y float64
}

type layout struct {
	size  float64
	lines []line
}

func layoutText(field Field, font *fonts.Font, size float64) layout {
	w, h := field.Width(), field.Height()
	availWidth := w - 2*padding
	availHeight := h - 2*padding
	ascent := float64(font.Ascent) / 1000
	descent := -float64(font.Descent) / 1000

	value := strings.ReplaceAll(field.Value, "\r\n", "\n")
	if field.Password {
		value = strings.Repeat("*", utf8.RuneCountInString(value))
	}

	if !field.Multiline {
		text := fonts.EncodeWinAnsi(value)
		if size <= 0 {
			size = availHeight / (ascent + descent)
			if tw := font.Width(text, 1); tw > 0 && availWidth/tw < size {
				size = availWidth / tw
			}
			if size < minFontSize {
				size = minFontSize
			}
		}
		tw := font.Width(text, size)
		y := (h-size*(ascent+descent))/2 + size*descent
		return layout{size: size, lines: []line{{text: text, x: alignX(field.Align, w, tw), y: y}}}
	}

	auto := size <= 0
	if auto {
		size = multilineStart
	}
	for {
		wrapped := wrap(value, font, size, availWidth)
		fits := float64(len(wrapped))*size*leading <= availHeight
		for _, t := range wrapped {
			if font.Width(t, size) > availWidth {
				fits = false
			}
		}
		if !auto || fits || size <= minFontSize {
			out := layout{size: size}
			top := h - padding - size*ascent
			for i, t := range wrapped {
				out.lines = append(out.lines, line{
					text: t,
					x:    alignX(field.Align, w, font.Width(t, size)),
					y:    top - float64(i)*size*leading,
				})
			}
			return out
		}
		size -= 0.5
		if size < minFontSize {
			size = minFontSize
		}
	}
}

func alignX(align TextAlign, width, textWidth float64) float64 {
	switch align {
	case AlignCenter:
		return (width - textWidth) / 2
	case AlignRight:
		return width - padding - textWidth
	}
	return padding
}

// wrap breaks text into lines no wider than width. Words longer than a line
// are kept whole.
func wrap(text string, font *fonts.Font, size, width float64) [][]byte {
	var lines [][]byte
	for _, paragraph := range strings.Split(text, "\n") {
		var current []byte
		for _, word := range strings.Split(paragraph, " ") {
			encoded := fonts.EncodeWinAnsi(word)
			if current == nil {
				current = encoded
				continue
			}
			candidate := append(append(append([]byte{}, current...), ' '), encoded...)
			if font.Width(candidate, size) > width {
				lines = append(lines, current)
				current = encoded
				continue
			}
			current = candidate
		}
		lines = append(lines, current)
	}
	return lines
}

// RegisterFont writes the font dictionary of f, once per update.
func (r *Renderer) RegisterFont(f *fonts.Font) (uint32, error) {
	key := f.Name + "/" + f.Hash
	if id, ok := r.fontIDs[key]; ok {
		return id, nil
	}

	var id uint32
	var err error
	if f.Embedded && len(f.Data) > 0 {
		id, err = r.registerTrueType(f)
	} else {
		id, err = r.context.AddObject([]byte(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont %s /Encoding /WinAnsiEncoding >>", pdfenc.Name(f.Name))))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to register font %s: %w", f.Name, err)
	}
	r.fontIDs[key] = id
	return id, nil
}

func (r *Renderer) registerTrueType(f *fonts.Font) (uint32, error) {
	fontStreamID, err := r.context.AddStream(fmt.Sprintf("/Length1 %d", len(f.Data)), f.Data)
	if err != nil {
		return 0, err
	}

	fd := fmt.Sprintf("<< /Type /FontDescriptor /FontName %s /Flags 32 /FontBBox [-500 %d 1000 %d] /ItalicAngle 0 /Ascent %d /Descent %d /CapHeight 700 /StemV 80 /FontFile2 %d 0 R >>",
		pdfenc.Name(f.Name), f.Descent, f.Ascent, f.Ascent, f.Descent, fontStreamID)
	descriptorID, err := r.context.AddObject([]byte(fd))
	if err != nil {
		return 0, err
	}

	var fontBuf bytes.Buffer
	fmt.Fprintf(&fontBuf, "<< /Type /Font /Subtype /TrueType /BaseFont %s /FontDescriptor %d 0 R /FirstChar 32 /LastChar 255 /Encoding /WinAnsiEncoding /Widths [", pdfenc.Name(f.Name), descriptorID)
	for _, w := range f.Metrics.GetWidthsArray() {
		fmt.Fprintf(&fontBuf, " %d", w)
	}
	fontBuf.WriteString(" ] >>")
	return r.context.AddObject(fontBuf.Bytes())
}
