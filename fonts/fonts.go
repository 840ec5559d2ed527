// Package fonts provides the fonts used to render filled form values.
//
// Standard PDF fonts are measured with built-in width tables. A TrueType font
// can be loaded from disk, in which case its metrics are parsed with sfnt and
// the font program is embedded into the output.
package fonts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/encoding/charmap"
)

// StandardType represents standard PDF fonts that are available in all PDF readers
// without embedding.
type StandardType int

const (
	// Helvetica is the standard sans-serif font.
	Helvetica StandardType = iota
	// HelveticaBold is bold Helvetica.
	HelveticaBold
	// HelveticaOblique is italic/oblique Helvetica.
	HelveticaOblique
	// TimesRoman is the standard serif font.
	TimesRoman
	// TimesBold is bold Times Roman.
	TimesBold
	// Courier is the standard monospace font.
	Courier
	// CourierBold is bold Courier.
	CourierBold
)

// Font represents a font resource that can be used in field appearances.
type Font struct {
	Name     string   // PostScript name of the font
	Data     []byte   // TrueType font data (nil for standard fonts)
	Hash     string   // SHA256 hash of font data for deduplication
	Embedded bool     // Whether the font should be embedded in the PDF
	Metrics  *Metrics // Parsed metrics for embedded fonts

	// Ascent and Descent in 1/1000 em, Descent is negative.
	Ascent  int
	Descent int

	widths  *[95]int
	fixed   int
	missing int
}

var standardNames = map[StandardType]string{
	Helvetica:        "Helvetica",
	HelveticaBold:    "Helvetica-Bold",
	HelveticaOblique: "Helvetica-Oblique",
	TimesRoman:       "Times-Roman",
	TimesBold:        "Times-Bold",
	Courier:          "Courier",
	CourierBold:      "Courier-Bold",
}

// Standard returns a Font for a standard PDF font (no embedding required).
func Standard(ft StandardType) *Font {
	f := &Font{Name: standardNames[ft]}
	switch ft {
	case HelveticaBold:
		f.widths, f.missing = &helveticaBoldWidths, 556
		f.Ascent, f.Descent = 718, -207
	case TimesRoman, TimesBold:
		f.widths, f.missing = &timesRomanWidths, 500
		f.Ascent, f.Descent = 683, -217
	case Courier, CourierBold:
		f.fixed = 600
		f.Ascent, f.Descent = 629, -157
	default:
		f.widths, f.missing = &helveticaWidths, 556
		f.Ascent, f.Descent = 718, -207
	}
	if f.Name == "" {
		f.Name = standardNames[Helvetica]
	}
	return f
}

// ByBaseFont picks the standard font closest to a font resource name or
// BaseFont found in a form's default resources. Unknown names map to
// Helvetica.
func ByBaseFont(name string) *Font {
	if i := strings.IndexByte(name, '+'); i == 6 {
		// Subset prefix.
		name = name[i+1:]
	}
	switch strings.ToLower(strings.NewReplacer(" ", "", ",", "-").Replace(name)) {
	case "hebo", "helvetica-bold", "arial-bold", "arial-boldmt", "arialbold":
		return Standard(HelveticaBold)
	case "heob", "helvetica-oblique", "arial-italic", "arial-italicmt":
		return Standard(HelveticaOblique)
	case "tiro", "times-roman", "times", "timesnewroman", "timesnewromanpsmt", "timesroman":
		return Standard(TimesRoman)
	case "tibo", "times-bold", "timesnewroman-bold", "timesnewromanps-boldmt":
		return Standard(TimesBold)
	case "cour", "courier", "couriernew", "couriernewpsmt":
		return Standard(Courier)
	case "cobo", "courier-bold", "couriernew-bold", "couriernewps-boldmt":
		return Standard(CourierBold)
	}
	return Standard(Helvetica)
}

// LoadTTF reads a TrueType font file to be embedded into the output.
func LoadTTF(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	return ParseTTF(data)
}

// ParseTTF builds an embeddable font from TrueType font data.
func ParseTTF(data []byte) (*Font, error) {
	metrics, err := ParseTTFMetrics(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	var buf sfnt.Buffer
	name, err := metrics.font.Name(&buf, sfnt.NameIDPostScript)
	if err != nil || name == "" {
		name = "EmbeddedFont"
	}
	sum := sha256.Sum256(data)

	f := &Font{
		Name:     strings.ReplaceAll(name, " ", ""),
		Data:     data,
		Hash:     hex.EncodeToString(sum[:]),
		Embedded: true,
		Metrics:  metrics,
		Ascent:   800,
		Descent:  -200,
	}

	ppem := fixed.Int26_6(metrics.UnitsPerEm) << 6
	if vm, err := metrics.font.Metrics(&buf, ppem, font.HintingNone); err == nil && metrics.UnitsPerEm > 0 {
		scale := 1000.0 / float64(metrics.UnitsPerEm)
		f.Ascent = int(float64(vm.Ascent>>6) * scale)
		f.Descent = -int(float64(vm.Descent>>6) * scale)
	}
	return f, nil
}

// Width returns the width in points of WinAnsi encoded text at the given size.
func (f *Font) Width(text []byte, size float64) float64 {
	if f.Metrics != nil {
		total := 0.0
		for _, c := range text {
			total += float64(f.Metrics.GetGlyphWidth(charmap.Windows1252.DecodeByte(c)))
		}
		return total / float64(f.Metrics.UnitsPerEm) * size
	}

	total := 0
	for _, c := range text {
		total += f.glyphWidth(c)
	}
	return float64(total) / 1000 * size
}

func (f *Font) glyphWidth(c byte) int {
	switch {
	case f.fixed > 0:
		return f.fixed
	case f.widths != nil && c >= 32 && c <= 126:
		return f.widths[c-32]
	case f.missing > 0:
		return f.missing
	}
	return 500
}

// EncodeWinAnsi converts text to WinAnsiEncoding. Runes without a WinAnsi
// code are replaced by '?', tabs and line breaks by spaces.
func EncodeWinAnsi(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		b, ok := winAnsi(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// Unencodable returns the runes of text that EncodeWinAnsi replaces by '?'.
func Unencodable(text string) []rune {
	var out []rune
	for _, r := range text {
		if _, ok := winAnsi(r); !ok {
			out = append(out, r)
		}
	}
	return out
}

func winAnsi(r rune) (byte, bool) {
	switch r {
	case '\t', '\r', '\n':
		return ' ', true
	}
	b, ok := charmap.Windows1252.EncodeRune(r)
	if !ok || b < 32 {
		return 0, false
	}
	return b, true
}

// Metrics contains parsed font metrics for accurate text measurement.
type Metrics struct {
	UnitsPerEm  int
	GlyphWidths map[rune]int // Advance widths in font units
	font        *sfnt.Font
}

// ParseTTFMetrics parses a TrueType font file and extracts the advance widths
// of every glyph reachable through WinAnsiEncoding.
func ParseTTFMetrics(data []byte) (*Metrics, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, err
	}

	unitsPerEm := f.UnitsPerEm()
	glyphWidths := make(map[rune]int)
	var buf sfnt.Buffer

	// Use unitsPerEm as the ppem so advances come out in font units.
	ppem := fixed.Int26_6(unitsPerEm) << 6

	for c := 32; c <= 255; c++ {
		r := charmap.Windows1252.DecodeByte(byte(c))
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			continue
		}

		advance, err := f.GlyphAdvance(&buf, idx, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		glyphWidths[r] = int(advance >> 6)
	}

	return &Metrics{
		UnitsPerEm:  int(unitsPerEm),
		GlyphWidths: glyphWidths,
		font:        f,
	}, nil
}

// GetGlyphWidth returns the width of a single rune in font units.
func (m *Metrics) GetGlyphWidth(r rune) int {
	if m == nil {
		return 0
	}
	if width, ok := m.GlyphWidths[r]; ok {
		return width
	}
	return m.UnitsPerEm / 2
}

// GetWidthsArray returns the /Widths array for a WinAnsi font dictionary
// (FirstChar=32, LastChar=255), scaled to 1000 units per em.
func (m *Metrics) GetWidthsArray() []int {
	widths := make([]int, 256-32)
	defaultWidth := 500

	if m == nil || m.UnitsPerEm <= 0 {
		for i := range widths {
			widths[i] = defaultWidth
		}
		return widths
	}

	scale := 1000.0 / float64(m.UnitsPerEm)
	defaultWidth = int(float64(m.UnitsPerEm/2) * scale)
	for c := 32; c < 256; c++ {
		if w, ok := m.GlyphWidths[charmap.Windows1252.DecodeByte(byte(c))]; ok {
			widths[c-32] = int(float64(w) * scale)
		} else {
			widths[c-32] = defaultWidth
		}
	}
	return widths
}
