package forms

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/digitorus/pdffill/internal/testpdf"
)

func sampleFields() []testpdf.Field {
	return []testpdf.Field{
		{Name: "name", Rect: [4]float64{100, 600, 300, 620}, DA: "/Helv 12 Tf 0 g", Q: 1},
		{Name: "date", Rect: [4]float64{100, 560, 300, 580}, Value: "2023-01-01"},
		{Name: "notes", Rect: [4]float64{100, 400, 300, 500}, Flags: FlagMultiline, Kid: true},
		{Name: "agree", Type: "Btn", Rect: [4]float64{100, 360, 112, 372}, OnState: "Accept"},
		{Name: "city", Parent: "address", Rect: [4]float64{100, 300, 300, 320}},
		{Name: "zip", Parent: "address", Rect: [4]float64{100, 270, 300, 290}, Hidden: true},
	}
}

func TestExtract(t *testing.T) {
	r := testpdf.Open(t, testpdf.Build(testpdf.Options{Fields: sampleFields()}))
	fields := Extract(r)

	type summary struct {
		Name, Type, Value, DA string
		Flags, Align, Widgets int
	}
	var got []summary
	for _, f := range fields {
		got = append(got, summary{f.Name, f.Type, f.Value, f.DA, f.Flags, f.Align, len(f.Widgets)})
	}

	want := []summary{
		{"name", "Tx", "", "/Helv 12 Tf 0 g", 0, 1, 1},
		{"date", "Tx", "2023-01-01", "/Helv 0 Tf 0 g", 0, 0, 1},
		{"notes", "Tx", "", "/Helv 0 Tf 0 g", FlagMultiline, 0, 1},
		{"agree", "Btn", "", "/Helv 0 Tf 0 g", 0, 0, 1},
		{"address.city", "Tx", "", "/Helv 0 Tf 0 g", 0, 0, 1},
		{"address.zip", "Tx", "", "/Helv 0 Tf 0 g", 0, 0, 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}

	notes := MapFields(fields)["notes"]
	if notes == nil || !notes.Multiline() {
		t.Fatal("notes should be a multiline text field")
	}
	if notes.Widgets[0].Key("Parent").IsNull() {
		t.Error("notes widget should be a separate kid object")
	}
}

func TestExtractWithoutForm(t *testing.T) {
	r := testpdf.Open(t, testpdf.Build(testpdf.Options{}))
	if fields := Extract(r); len(fields) != 0 {
		t.Errorf("Extract() = %d fields, want 0", len(fields))
	}
	if Extract(nil) != nil {
		t.Error("Extract(nil) should be nil")
	}
}

func TestMapWidgets(t *testing.T) {
	r := testpdf.Open(t, testpdf.Build(testpdf.Options{Fields: sampleFields(), ExtraAnnot: true}))
	fields := Extract(r)
	widgets := MapWidgets(fields)

	annots := r.Page(1).V.Key("Annots")
	if annots.Len() != len(fields)+1 {
		t.Fatalf("page has %d annotations, want %d", annots.Len(), len(fields)+1)
	}

	matched := 0
	for i := 0; i < annots.Len(); i++ {
		id := uint32(annots.Index(i).GetPtr().GetID())
		if f, ok := widgets[id]; ok {
			matched++
			if f.Widgets[0].Key("Rect").Len() != 4 {
				t.Errorf("field %s widget has no rectangle", f.Name)
			}
		}
	}
	if matched != len(fields) {
		t.Errorf("matched %d widgets, want %d", matched, len(fields))
	}
}

func TestButtonState(t *testing.T) {
	r := testpdf.Open(t, testpdf.Build(testpdf.Options{Fields: []testpdf.Field{
		{Name: "agree", Type: "Btn", Rect: [4]float64{0, 0, 10, 10}, OnState: "Accept"},
		{Name: "checked", Type: "Btn", Rect: [4]float64{0, 20, 10, 30}, Value: "Yes"},
	}}))
	fields := MapFields(Extract(r))
	agree := fields["agree"].Widgets[0]

	if diff := cmp.Diff([]string{"Accept"}, OnStates(agree)); diff != "" {
		t.Errorf("OnStates() mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		value string
		radio bool
		want  string
	}{
		{"Accept", false, "Accept"},
		{"accept", false, "Accept"},
		{"Yes", false, "Accept"},
		{"true", false, "Accept"},
		{"1", false, "Accept"},
		{"no", false, Off},
		{"", false, Off},
		{"Off", false, Off},
		{"Yes", true, Off},
		{"ACCEPT", true, "Accept"},
	}
	for _, tt := range tests {
		if got := ButtonState(agree, tt.value, tt.radio); got != tt.want {
			t.Errorf("ButtonState(%q, radio=%v) = %q, want %q", tt.value, tt.radio, got, tt.want)
		}
	}

	if got := CurrentState(agree); got != Off {
		t.Errorf("CurrentState(agree) = %q, want Off", got)
	}
	if got := CurrentState(fields["checked"].Widgets[0]); got != "Yes" {
		t.Errorf("CurrentState(checked) = %q, want Yes", got)
	}
	if got := fields["checked"].Value; got != "Yes" {
		t.Errorf("checked value = %q, want Yes", got)
	}
}
