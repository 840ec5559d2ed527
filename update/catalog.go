package update

import (
	"fmt"
	"sort"
	"time"

	"github.com/digitorus/pdf"

	pdfenc "github.com/digitorus/pdffill/internal/pdf"
)

// Producer is written to the information dictionary unless overridden.
const Producer = "pdffill"

// WriteCatalog replaces the document catalog, keeping every entry except the
// dropped keys. set adds or replaces entries with raw PDF syntax.
func (context *Context) WriteCatalog(set map[string]string, drop ...string) error {
	root := context.PDFReader.Trailer().Key("Root")
	if root.IsNull() {
		return fmt.Errorf("document has no catalog")
	}
	ptr := pdfenc.PtrOf(root)
	return context.UpdateObject(ptr.ID, ptr.Gen, pdfenc.SerializeDict(root, set, drop...))
}

// WriteInfo writes a new document information dictionary holding the
// original entries merged with entries. Producer and ModDate are always set.
func (context *Context) WriteInfo(entries map[string]string, date time.Time) (uint32, error) {
	values := make(map[string]string)

	original := context.PDFReader.Trailer().Key("Info")
	for _, key := range original.Keys() {
		v := original.Key(key)
		if v.Kind() == pdf.String {
			values[key] = pdfenc.HexString([]byte(v.RawString()))
			continue
		}
		values[key] = string(pdfenc.Serialize(v))
	}
	if _, ok := values["Producer"]; !ok {
		values["Producer"] = pdfenc.String(Producer)
	}
	if _, ok := values["CreationDate"]; !ok {
		values["CreationDate"] = pdfenc.DateTime(date)
	}
	values["ModDate"] = pdfenc.DateTime(date)
	for key, value := range entries {
		values[key] = pdfenc.String(value)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	info := "<<"
	for _, key := range keys {
		info += "\n  " + pdfenc.Name(key) + " " + values[key]
	}
	info += "\n>>"

	id, err := context.AddObject([]byte(info))
	if err != nil {
		return 0, fmt.Errorf("failed to write info dictionary: %w", err)
	}
	context.InfoID = id
	return id, nil
}
