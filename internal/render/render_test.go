package render

import (
	"bytes"
	"compress/zlib"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/digitorus/pdffill/fonts"
	"github.com/digitorus/pdffill/internal/testpdf"
	"github.com/digitorus/pdffill/update"
)

func TestParseDA(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want DA
	}{
		{"default", "", DA{Font: "Helv", Size: 0, Color: Color{0}}},
		{"gray", "/Helv 12 Tf 0.5 g", DA{Font: "Helv", Size: 12, Color: Color{0.5}}},
		{"rgb before font", "1 0 0 rg /TiRo 9.5 Tf", DA{Font: "TiRo", Size: 9.5, Color: Color{1, 0, 0}}},
		{"cmyk", "/Cour 10 Tf 0 0 0 1 k", DA{Font: "Cour", Size: 10, Color: Color{0, 0, 0, 1}}},
		{"extra operators", "0 Tw /HeBo 8 Tf 0 g 2 Tz", DA{Font: "HeBo", Size: 8, Color: Color{0}}},
		{"auto size", "/Helv 0 Tf 0 g", DA{Font: "Helv", Size: 0, Color: Color{0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseDA(tt.in)); diff != "" {
				t.Errorf("ParseDA(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestColorOperators(t *testing.T) {
	tests := []struct {
		c            Color
		fill, stroke string
	}{
		{Color{0}, "0 g", "0 G"},
		{Color{1, 0.5, 0}, "1 0.5 0 rg", "1 0.5 0 RG"},
		{Color{0, 0, 0, 1}, "0 0 0 1 k", "0 0 0 1 K"},
		{nil, "", ""},
		{Color{1, 2}, "", ""},
	}
	for _, tt := range tests {
		if got := tt.c.Fill(); got != tt.fill {
			t.Errorf("%v.Fill() = %q, want %q", tt.c, got, tt.fill)
		}
		if got := tt.c.Stroke(); got != tt.stroke {
			t.Errorf("%v.Stroke() = %q, want %q", tt.c, got, tt.stroke)
		}
	}
}

func TestLayoutSingleLine(t *testing.T) {
	font := fonts.Standard(fonts.Helvetica)
	field := Field{Value: "Jane Doe", Rect: [4]float64{100, 600, 300, 620}}

	t.Run("fixed size left", func(t *testing.T) {
		l := layoutText(field, font, 10)
		if l.size != 10 || len(l.lines) != 1 {
			t.Fatalf("layout = %+v", l)
		}
		if l.lines[0].x != padding {
			t.Errorf("x = %v, want %v", l.lines[0].x, padding)
		}
		if string(l.lines[0].text) != "Jane Doe" {
			t.Errorf("text = %q", l.lines[0].text)
		}
	})

	t.Run("right aligned", func(t *testing.T) {
		f := field
		f.Align = AlignRight
		l := layoutText(f, font, 10)
		want := 200 - padding - font.Width([]byte("Jane Doe"), 10)
		if diff := l.lines[0].x - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("x = %v, want %v", l.lines[0].x, want)
		}
	})

	t.Run("centered", func(t *testing.T) {
		f := field
		f.Align = AlignCenter
		l := layoutText(f, font, 10)
		want := (200 - font.Width([]byte("Jane Doe"), 10)) / 2
		if diff := l.lines[0].x - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("x = %v, want %v", l.lines[0].x, want)
		}
	})

	t.Run("auto size fits", func(t *testing.T) {
		f := field
		f.Rect = [4]float64{0, 0, 60, 20}
		f.Value = "A rather long recipient name"
		l := layoutText(f, font, 0)
		if l.size < minFontSize {
			t.Errorf("size %v below minimum", l.size)
		}
		if w := font.Width(l.lines[0].text, l.size); w > 60-2*padding+1e-9 {
			t.Errorf("text width %v exceeds field", w)
		}
	})

	t.Run("password", func(t *testing.T) {
		f := field
		f.Password = true
		l := layoutText(f, font, 10)
		if string(l.lines[0].text) != "********" {
			t.Errorf("text = %q", l.lines[0].text)
		}
	})
}

func TestLayoutMultiline(t *testing.T) {
	font := fonts.Standard(fonts.Courier)
	field := Field{
		Value:     "aaaa bbbb cccc\nsecond",
		Rect:      [4]float64{0, 0, 64, 200},
		Multiline: true,
	}

	// Courier at 10pt is 6pt per character, 60pt leaves room for 10.
	l := layoutText(field, font, 10)
	var got []string
	for _, ln := range l.lines {
		got = append(got, string(ln.text))
	}
	want := []string{"aaaa bbbb", "cccc", "second"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	for i := 1; i < len(l.lines); i++ {
		if l.lines[i].y >= l.lines[i-1].y {
			t.Errorf("line %d is not below line %d", i, i-1)
		}
	}
}

func TestRendererText(t *testing.T) {
	input := testpdf.Build(testpdf.Options{})
	context, err := update.New(bytes.NewReader(input), testpdf.Open(t, input))
	if err != nil {
		t.Fatalf("update.New() error = %v", err)
	}
	context.CompressLevel = zlib.NoCompression

	r := New(context, map[string]string{"TiRo": "Times-Roman"}, nil)
	first, err := r.Text(Field{Value: "Smith (Jr.)", Rect: [4]float64{0, 0, 200, 20}, DA: "/TiRo 11 Tf 0 0 1 rg"})
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	second, err := r.Text(Field{Value: "2024-05-01", Rect: [4]float64{0, 0, 100, 20}, DA: "/TiRo 0 Tf 0 g"})
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	// The font is shared, so the second appearance directly follows the first.
	if second != first+1 {
		t.Errorf("second appearance id = %d, want %d", second, first+1)
	}

	out := string(context.Bytes()[len(input):])
	if strings.Count(out, "/BaseFont /Times-Roman") != 1 {
		t.Errorf("font written %d times, want once", strings.Count(out, "/BaseFont /Times-Roman"))
	}
	for _, want := range []string{
		`(Smith \(Jr.\)) Tj`,
		"(2024-05-01) Tj",
		"/TiRo 11.00 Tf",
		"0 0 1 rg",
		"/Tx BMC",
		"/BBox [0 0 200 20]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q", want)
		}
	}
}

func TestRendererFontOverride(t *testing.T) {
	override := fonts.Standard(fonts.Courier)
	r := New(nil, map[string]string{"Helv": "Helvetica"}, override)
	if got := r.FontFor(ParseDA("/Helv 10 Tf")); got != override {
		t.Errorf("FontFor() = %s, want override", got.Name)
	}

	r = New(nil, nil, nil)
	if got := r.FontFor(ParseDA("/HeBo 10 Tf")).Name; got != "Helvetica-Bold" {
		t.Errorf("FontFor(HeBo) = %s", got)
	}
}
