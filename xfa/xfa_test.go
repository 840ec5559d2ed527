package xfa

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/digitorus/pdffill/internal/testpdf"
)

func wellFormed(t *testing.T, data []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("XML is not well-formed: %v\n%s", err, data)
		}
	}
}

func TestBuildDataXML(t *testing.T) {
	got, err := BuildDataXML(map[string]string{
		"name":    "Smith & Co.",
		"date":    "2024-05-01",
		"comment": `<b>"quoted"</b>`,
	})
	if err != nil {
		t.Fatalf("BuildDataXML() error = %v", err)
	}

	want := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<form1><page1><comment>&lt;b&gt;&#34;quoted&#34;&lt;/b&gt;</comment><date>2024-05-01</date><name>Smith &amp; Co.</name></page1></form1>`
	if string(got) != want {
		t.Errorf("BuildDataXML() =\n%s\nwant\n%s", got, want)
	}
	wellFormed(t, got)
}

func TestBuildDataXMLEmpty(t *testing.T) {
	got, err := DataElement(nil)
	if err != nil {
		t.Fatalf("DataElement() error = %v", err)
	}
	if string(got) != "<form1><page1></page1></form1>" {
		t.Errorf("DataElement(nil) = %s", got)
	}
}

func TestInvalidNames(t *testing.T) {
	for _, name := range []string{"", "1st", "first name", "a<b", "-x", "ns:name"} {
		t.Run(name, func(t *testing.T) {
			_, err := BuildDataXML(map[string]string{name: "v"})
			if !errors.Is(err, ErrInvalidName) {
				t.Errorf("BuildDataXML(%q) error = %v, want ErrInvalidName", name, err)
			}
		})
	}
	for _, name := range []string{"name", "_id", "first-name", "v1.2", "Straße"} {
		if !ValidName(name) {
			t.Errorf("ValidName(%q) = false, want true", name)
		}
	}
}

func TestMergeDatasets(t *testing.T) {
	body := []byte("<form1><page1><name>Smith &amp; Co.</name></page1></form1>")

	tests := []struct {
		name     string
		datasets string
		want     string
	}{
		{
			name:     "replaces data",
			datasets: testpdf.DefaultDatasets,
			want: `<xfa:datasets xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/">
<xfa:data>` + string(body) + `</xfa:data>
</xfa:datasets>`,
		},
		{
			name:     "empty data element",
			datasets: `<xfa:datasets xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/"><xfa:data /></xfa:datasets>`,
			want:     `<xfa:datasets xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/"><xfa:data>` + string(body) + `</xfa:data></xfa:datasets>`,
		},
		{
			name:     "missing data element",
			datasets: `<xfa:datasets xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/"><xfa:dataDescription/></xfa:datasets>`,
			want:     `<xfa:datasets xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/"><xfa:data xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/">` + string(body) + `</xfa:data><xfa:dataDescription/></xfa:datasets>`,
		},
		{
			name:     "empty datasets element",
			datasets: `<xfa:datasets xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/"/>`,
			want:     `<xfa:datasets xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/"><xfa:data xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/">` + string(body) + `</xfa:data></xfa:datasets>`,
		},
		{
			name:     "no datasets",
			datasets: "",
			want:     `<xfa:datasets xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/"><xfa:data>` + string(body) + `</xfa:data></xfa:datasets>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MergeDatasets([]byte(tt.datasets), body)
			if err != nil {
				t.Fatalf("MergeDatasets() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, string(got)); diff != "" {
				t.Errorf("MergeDatasets() mismatch (-want +got):\n%s", diff)
			}
			wellFormed(t, got)
		})
	}
}

func TestMergeDatasetsMalformed(t *testing.T) {
	if _, err := MergeDatasets([]byte("<xfa:datasets><xfa:data>"), []byte("<form1/>")); err == nil {
		t.Error("expected an error for a malformed datasets packet")
	}
	if _, err := MergeDatasets([]byte("<other/>"), []byte("<form1/>")); err == nil {
		t.Error("expected an error for a packet without datasets element")
	}
}

func TestValues(t *testing.T) {
	datasets := `<xfa:datasets xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/">
<xfa:data>
<form1>
  <page1>
    <name>Smith &amp; Co.</name>
    <date>2024-05-01</date>
    <empty/>
    <name>second</name>
  </page1>
</form1>
</xfa:data>
</xfa:datasets>`

	got, err := Values([]byte(datasets))
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}
	want := map[string]string{
		"form1.page1.name":  "Smith & Co.",
		"form1.page1.date":  "2024-05-01",
		"form1.page1.empty": "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}
}

func TestBind(t *testing.T) {
	data := map[string]string{
		"form1.page1.name":  "Jane",
		"form1.page1.date":  "2024-05-01",
		"form1.page1.id":    "42",
		"form1.page2.id":    "43",
		"form1.page1.title": "Dr.",
	}
	fields := []string{
		"form1[0].page1[0].name[0]",
		"date",
		"form1.page1.title",
		"id",
		"unrelated",
	}
	want := map[string]string{
		"form1[0].page1[0].name[0]": "form1.page1.name",
		"date":                      "form1.page1.date",
		"form1.page1.title":         "form1.page1.title",
	}
	if diff := cmp.Diff(want, Bind(data, fields)); diff != "" {
		t.Errorf("Bind() mismatch (-want +got):\n%s", diff)
	}
}

func TestPackets(t *testing.T) {
	r := testpdf.Open(t, testpdf.Build(testpdf.Options{
		XFA:    true,
		Fields: []testpdf.Field{{Name: "name", Rect: [4]float64{0, 0, 100, 20}}},
	}))
	packets, err := Packets(r.Trailer().Key("Root").Key("AcroForm"))
	if err != nil {
		t.Fatalf("Packets() error = %v", err)
	}

	var names []string
	for _, p := range packets {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"template", "datasets"}, names); diff != "" {
		t.Errorf("packet names mismatch (-want +got):\n%s", diff)
	}
	if got := string(Datasets(packets)); got != testpdf.DefaultDatasets {
		t.Errorf("Datasets() = %q", got)
	}

	plain := testpdf.Open(t, testpdf.Build(testpdf.Options{}))
	packets, err = Packets(plain.Trailer().Key("Root").Key("AcroForm"))
	if err != nil || len(packets) != 0 {
		t.Errorf("Packets() without XFA = %v, %v", packets, err)
	}
}

func TestDatasetsInsideXDP(t *testing.T) {
	xdp := `<xdp:xdp xmlns:xdp="http://ns.adobe.com/xdp/"><template/>` + testpdf.DefaultDatasets + `</xdp:xdp>`
	got := Datasets([]Packet{{Data: []byte(xdp)}})
	if string(got) != testpdf.DefaultDatasets {
		t.Errorf("Datasets() = %q", got)
	}
	if !strings.HasPrefix(string(got), "<xfa:datasets") {
		t.Error("datasets element not found")
	}
}
