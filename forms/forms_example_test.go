package forms_test

import (
	"bytes"
	"fmt"

	"github.com/digitorus/pdf"

	"github.com/digitorus/pdffill/forms"
	"github.com/digitorus/pdffill/internal/testpdf"
)

// ExampleExtract demonstrates how to list the form fields of a template.
func ExampleExtract() {
	data := testpdf.Build(testpdf.Options{Fields: []testpdf.Field{
		{Name: "recipient", Rect: [4]float64{100, 600, 300, 620}},
		{Name: "issued", Rect: [4]float64{100, 560, 300, 580}, Value: "2023-01-01"},
	}})

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, f := range forms.Extract(r) {
		fmt.Printf("Field: %s (Type: %s) %q\n", f.Name, f.Type, f.Value)
	}

	// Output:
	// Field: recipient (Type: Tx) ""
	// Field: issued (Type: Tx) "2023-01-01"
}
