package pdffill

// FormKind selects how field values are applied to the template.
type FormKind int

const (
	// AcroForm sets the values of the standard PDF form fields.
	AcroForm FormKind = iota

	// XFA merges the values into the data packet of an XFA form.
	XFA
)

// String returns the name of the form kind.
func (k FormKind) String() string {
	switch k {
	case XFA:
		return "xfa"
	default:
		return "acroform"
	}
}

// ParseFormKind maps the optional fourth command line argument to a form
// kind. Only the literal "xfa" selects XFA; anything else is AcroForm.
func ParseFormKind(arg string) FormKind {
	if arg == "xfa" {
		return XFA
	}
	return AcroForm
}

// Result contains the outcome of a Write.
type Result struct {
	// Kind is the form kind that was filled.
	Kind FormKind

	// Set lists the fields that received a value, sorted by name.
	Set []string

	// Ignored lists the supplied names that did not match a field, sorted.
	Ignored []string

	// Flattened is the number of widget annotations drawn onto pages.
	Flattened int

	// Pages is the number of rewritten page objects.
	Pages int

	// XFA holds the generated data document in XFA mode.
	XFA []byte
}
