package pdf

import (
	"testing"
	"time"

	"github.com/digitorus/pdffill/internal/testpdf"
)

func TestString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe", "(Jane Doe)"},
		{"a(b)c\\", `(a\(b\)c\\)`},
		{"line\nbreak", `(line\nbreak)`},
		{"Zoë", "<feff005a006f00eb>"},
		{"", "()"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := String(tt.in); got != tt.want {
				t.Errorf("String(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestLiteralOctal(t *testing.T) {
	if got := Literal([]byte{'A', 0x01, 0xe9}); got != `(A\001\351)` {
		t.Errorf("Literal() = %s", got)
	}
}

func TestName(t *testing.T) {
	tests := map[string]string{
		"Helv":     "/Helv",
		"Fx 1":     "/Fx#201",
		"a/b":      "/a#2Fb",
		"Lime#Two": "/Lime#23Two",
	}
	for in, want := range tests {
		if got := Name(in); got != want {
			t.Errorf("Name(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNumber(t *testing.T) {
	tests := map[float64]string{
		12:      "12",
		0.5:     "0.5",
		-3.25:   "-3.25",
		1e7:     "10000000",
		1.0 / 4: "0.25",
	}
	for in, want := range tests {
		if got := Number(in); got != want {
			t.Errorf("Number(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestDateTime(t *testing.T) {
	date := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	if got := DateTime(date); got != "(D:20240102030405+01'00')" {
		t.Errorf("DateTime() = %s", got)
	}
}

func TestSerializeKeepsReferences(t *testing.T) {
	r := testpdf.Open(t, testpdf.Build(testpdf.Options{
		Fields: []testpdf.Field{{Name: "name", Rect: [4]float64{100, 600, 300, 620}}},
	}))
	root := r.Trailer().Key("Root")

	got := string(SerializeDict(root, map[string]string{"Lang": "(en)"}, "AcroForm"))
	want := "<<\n  /Pages 2 0 R\n  /Type /Catalog\n  /Lang (en)\n>>"
	if got != want {
		t.Errorf("SerializeDict() =\n%s\nwant\n%s", got, want)
	}

	page := r.Page(1).V
	entries := SerializeEntries(page)
	if entries["Contents"] != "5 0 R" {
		t.Errorf("Contents = %q, want %q", entries["Contents"], "5 0 R")
	}
	if entries["MediaBox"] != "[0 0 612 792]" {
		t.Errorf("MediaBox = %q", entries["MediaBox"])
	}
	if entries["Resources"] != "<< /Font << /Helv 6 0 R >> >>" {
		t.Errorf("Resources = %q", entries["Resources"])
	}
}

func TestRectAndInherited(t *testing.T) {
	r := testpdf.Open(t, testpdf.Build(testpdf.Options{
		Fields: []testpdf.Field{{Name: "name", Rect: [4]float64{300, 620, 100, 600}, Kid: true, Q: 1}},
	}))
	widget := r.Page(1).V.Key("Annots").Index(0)

	if got := Rect(widget.Key("Rect")); got != [4]float64{100, 600, 300, 620} {
		t.Errorf("Rect() = %v", got)
	}
	if got := Inherited(widget, "Q").Int64(); got != 1 {
		t.Errorf("Inherited(Q) = %d, want 1", got)
	}
	if !Inherited(widget, "Missing").IsNull() {
		t.Error("Inherited(Missing) should be null")
	}
	if got := Matrix(widget.Key("Matrix")); got != [6]float64{1, 0, 0, 1, 0, 0} {
		t.Errorf("Matrix() = %v", got)
	}
}
