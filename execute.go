package pdffill

import (
	"fmt"
	"io"
	"sort"

	"github.com/digitorus/pdf"

	"github.com/digitorus/pdffill/forms"
	pdfenc "github.com/digitorus/pdffill/internal/pdf"
	"github.com/digitorus/pdffill/internal/render"
	"github.com/digitorus/pdffill/update"
	"github.com/digitorus/pdffill/xfa"
)

// Write finalizes the document by applying all staged values, flattening the
// form and removing it from the catalog. The result is written to output as
// an incremental update of the template.
func (d *Document) Write(output io.Writer) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &TemplateError{Err: fmt.Errorf("malformed PDF: %v", r)}
		}
	}()

	result = &Result{Kind: AcroForm}
	fields := d.FormFields()
	byName := forms.MapFields(fields)

	values := make(map[string]string)
	if d.xfa {
		result.Kind = XFA
		if values, err = d.bindXFA(fields, result); err != nil {
			return nil, err
		}
	}

	for name, value := range d.pendingFields {
		if _, ok := byName[name]; !ok {
			result.Ignored = append(result.Ignored, name)
			continue
		}
		values[name] = value
		result.Set = append(result.Set, name)
	}
	sort.Strings(result.Set)
	sort.Strings(result.Ignored)
	if len(result.Ignored) > 0 {
		d.logger.Printf("ignoring %d unknown field(s): %v", len(result.Ignored), result.Ignored)
	}

	context, err := update.New(io.NewSectionReader(d.reader, 0, d.size), d.rdr)
	if err != nil {
		return nil, &TemplateError{Err: err}
	}
	context.CompressLevel = d.compressLevel

	f := &flattener{
		context:  context,
		renderer: render.New(context, pdfenc.FormFonts(d.rdr), d.font),
		values:   values,
		widgets:  forms.MapWidgets(fields),
		logger:   d.logger,
	}
	if err := f.flatten(d.rdr); err != nil {
		return nil, fmt.Errorf("failed to flatten form: %w", err)
	}
	result.Flattened = f.flattened
	result.Pages = f.pages
	d.logger.Printf("flattened %d widget(s) on %d page(s)", f.flattened, f.pages)

	if err := context.WriteCatalog(nil, "AcroForm", "NeedsRendering", "Perms"); err != nil {
		return nil, fmt.Errorf("failed to update catalog: %w", err)
	}
	if _, err := context.WriteInfo(d.info, d.now()); err != nil {
		return nil, err
	}

	if err := context.Finish(output); err != nil {
		return nil, &WriteError{Err: err}
	}
	return result, nil
}

// bindXFA merges the staged XFA values into the datasets packet of the
// template and returns the values of the AcroForm fields bound to them.
func (d *Document) bindXFA(fields []FormField, result *Result) (map[string]string, error) {
	packets, err := xfa.Packets(d.acroForm())
	if err != nil {
		return nil, &TemplateError{Err: fmt.Errorf("failed to read XFA form: %w", err)}
	}
	if len(packets) == 0 {
		return nil, &TemplateError{Err: ErrNoXFA}
	}

	body, err := xfa.DataElement(d.xfaData)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	result.XFA, err = xfa.BuildDataXML(d.xfaData)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	d.logger.Printf("XFA data:\n%s", result.XFA)

	merged, err := xfa.MergeDatasets(xfa.Datasets(packets), body)
	if err != nil {
		return nil, &TemplateError{Err: err}
	}
	data, err := xfa.Values(merged)
	if err != nil {
		return nil, &TemplateError{Err: err}
	}

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}

	values := make(map[string]string)
	used := make(map[string]bool)
	for name, path := range xfa.Bind(data, names) {
		values[name] = data[path]
		used[path] = true
	}

	prefix := xfa.RootElement + "." + xfa.PageElement + "."
	for key := range d.xfaData {
		if used[prefix+key] {
			result.Set = append(result.Set, key)
		} else {
			result.Ignored = append(result.Ignored, key)
		}
	}
	return values, nil
}

// acroForm returns the interactive form dictionary of the template.
func (d *Document) acroForm() pdf.Value {
	return d.rdr.Trailer().Key("Root").Key("AcroForm")
}
