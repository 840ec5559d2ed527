package render

import (
	"strings"

	pdfenc "github.com/digitorus/pdffill/internal/pdf"
)

// Color is a color in DeviceGray, DeviceRGB or DeviceCMYK, depending on the
// number of components.
type Color []float64

// Fill returns the operator setting c as non-stroking color.
func (c Color) Fill() string {
	return c.op("g", "rg", "k")
}

// Stroke returns the operator setting c as stroking color.
func (c Color) Stroke() string {
	return c.op("G", "RG", "K")
}

func (c Color) op(gray, rgb, cmyk string) string {
	var name string
	switch len(c) {
	case 1:
		name = gray
	case 3:
		name = rgb
	case 4:
		name = cmyk
	default:
		return ""
	}
	parts := make([]string, 0, len(c)+1)
	for _, v := range c {
		parts = append(parts, pdfenc.Number(v))
	}
	return strings.Join(append(parts, name), " ")
}

// TextAlign defines horizontal text alignment, numbered like the /Q entry
// of a form field.
type TextAlign int

const (
	// AlignLeft aligns text to the left.
	AlignLeft TextAlign = iota
	// AlignCenter aligns text to the center.
	AlignCenter
	// AlignRight aligns text to the right.
	AlignRight
)

// Field contains the data needed to render the appearance of a text or
// choice field widget.
type Field struct {
	Value string
	// Rect is the normalized widget rectangle.
	Rect [4]float64
	// DA is the default appearance string of the field.
	DA        string
	Align     TextAlign
	Multiline bool
	Password  bool

	Background  Color
	Border      Color
	BorderWidth float64
}

// Width of the widget rectangle.
func (f Field) Width() float64 { return f.Rect[2] - f.Rect[0] }

// Height of the widget rectangle.
func (f Field) Height() float64 { return f.Rect[3] - f.Rect[1] }
