package pdffill

import (
	"github.com/digitorus/pdffill/forms"
)

// FormField is a terminal field of the AcroForm.
type FormField = forms.FormField

// FormFields returns all form fields in the document.
func (d *Document) FormFields() []FormField {
	return forms.Extract(d.rdr)
}

// SetField sets the value of a form field. Values for names that are not
// fields of the template are ignored when writing.
func (d *Document) SetField(name string, value string) {
	// Staging field updates to be applied during Write()
	if d.pendingFields == nil {
		d.pendingFields = make(map[string]string)
	}
	d.pendingFields[name] = value
}

// SetFields sets multiple form field values.
func (d *Document) SetFields(fields map[string]string) {
	for name, value := range fields {
		d.SetField(name, value)
	}
}

// SetXFAData stages values for the XFA layer of the template. On Write they
// are serialized as an XFA data document, merged into the datasets packet and
// bound to the AcroForm fields that display them. Templates without an XFA
// form fail with ErrNoXFA.
func (d *Document) SetXFAData(values map[string]string) {
	d.xfa = true
	if d.xfaData == nil {
		d.xfaData = make(map[string]string)
	}
	for k, v := range values {
		d.xfaData[k] = v
	}
}
