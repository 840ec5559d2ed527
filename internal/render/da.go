package render

import (
	"strconv"
	"strings"
)

// DefaultDA is used when neither the field nor the form define a default
// appearance.
const DefaultDA = "/Helv 0 Tf 0 g"

// DA is a parsed default appearance string.
type DA struct {
	Font  string
	Size  float64
	Color Color
}

// ParseDA extracts the font, font size and fill color from a default
// appearance string. Other operators are ignored.
func ParseDA(da string) DA {
	out := DA{Font: "Helv", Color: Color{0}}
	if strings.TrimSpace(da) == "" {
		da = DefaultDA
	}

	var operands []string
	for _, tok := range strings.Fields(da) {
		switch tok {
		case "Tf":
			if len(operands) >= 2 {
				if name := operands[len(operands)-2]; strings.HasPrefix(name, "/") {
					out.Font = name[1:]
				}
				if size, err := strconv.ParseFloat(operands[len(operands)-1], 64); err == nil && size >= 0 {
					out.Size = size
				}
			}
		case "g", "rg", "k":
			n := map[string]int{"g": 1, "rg": 3, "k": 4}[tok]
			if c, ok := numbers(operands, n); ok {
				out.Color = c
			}
		default:
			operands = append(operands, tok)
			continue
		}
		operands = operands[:0]
	}
	return out
}

func numbers(operands []string, n int) (Color, bool) {
	if len(operands) < n {
		return nil, false
	}
	c := make(Color, n)
	for i, s := range operands[len(operands)-n:] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		c[i] = v
	}
	return c, true
}
