package pdf

import (
	pdflib "github.com/digitorus/pdf"
)

// FormFonts maps the font resource names of the AcroForm default resources
// (/DR /Font) to their /BaseFont names.
func FormFonts(r *pdflib.Reader) map[string]string {
	found := make(map[string]string)
	if r == nil {
		return found
	}

	fonts := r.Trailer().Key("Root").Key("AcroForm").Key("DR").Key("Font")
	if fonts.Kind() != pdflib.Dict {
		return found
	}

	for _, name := range fonts.Keys() {
		font := fonts.Key(name)
		if font.Kind() != pdflib.Dict {
			continue
		}
		if base := font.Key("BaseFont"); base.Kind() == pdflib.Name {
			found[name] = base.Name()
		}
	}

	return found
}
