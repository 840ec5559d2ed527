package pdffill

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/digitorus/pdffill/fonts"
)

// Request describes one fill: the template, the output path, the field map
// and the form kind.
type Request struct {
	Template string
	Output   string
	Fields   map[string]string
	Kind     FormKind
}

// ParseArgs builds a request from the positional arguments
// <template> <output> <json-field-map> [xfa]. Further arguments are ignored.
// It does not touch the file system.
func ParseArgs(args []string) (*Request, error) {
	if len(args) < 3 {
		return nil, &UsageError{Msg: fmt.Sprintf("expected at least 3 arguments, got %d", len(args))}
	}

	fields, err := DecodeFields([]byte(args[2]))
	if err != nil {
		return nil, err
	}

	req := &Request{
		Template: args[0],
		Output:   args[1],
		Fields:   fields,
	}
	if len(args) > 3 {
		req.Kind = ParseFormKind(args[3])
	}
	return req, nil
}

// DecodeFields decodes a JSON object of string values. Any other top level
// value is a DecodeError; a value that is not a string is a FieldTypeError.
func DecodeFields(data []byte) (map[string]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, &DecodeError{Err: err}
		}
		return nil, &DecodeError{Err: fmt.Errorf("expected a JSON object, got %s", jsonType(trimmed))}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &DecodeError{Err: err}
	}

	fields := make(map[string]string, len(raw))
	for name, value := range raw {
		if jsonType(value) != "string" {
			return nil, &FieldTypeError{Field: name, Type: jsonType(value)}
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, &DecodeError{Err: err}
		}
		fields[name] = s
	}
	return fields, nil
}

func jsonType(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "nothing"
	}
	switch raw[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// Options configures FillFile.
type Options struct {
	// Logger receives diagnostics. Nil discards them.
	Logger *log.Logger

	// Font replaces the fonts of the form for all filled values.
	Font *fonts.Font

	// Info adds entries to the document information dictionary.
	Info map[string]string

	// Metadata adds the certificate metadata entries to the document
	// information dictionary.
	Metadata *Metadata
}

// FillFile fills the template of req and writes the flattened document to
// req.Output. The output is written to a temporary file in the same
// directory and renamed on success, so a failed fill leaves no output.
func FillFile(req *Request, opts Options) (*Result, error) {
	doc, err := OpenFile(req.Template)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = doc.Close()
	}()

	doc.SetLogger(opts.Logger)
	if opts.Font != nil {
		doc.SetFont(opts.Font)
	}
	for k, v := range opts.Info {
		doc.SetInfo(k, v)
	}
	if opts.Metadata != nil {
		info, err := opts.Metadata.Info(req.Fields)
		if err != nil {
			return nil, err
		}
		for k, v := range info {
			doc.SetInfo(k, v)
		}
	}

	switch req.Kind {
	case XFA:
		doc.SetXFAData(req.Fields)
	default:
		doc.SetFields(req.Fields)
	}

	tmp, err := os.CreateTemp(filepath.Dir(req.Output), "."+filepath.Base(req.Output)+".*")
	if err != nil {
		return nil, &WriteError{Path: req.Output, Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	result, err := doc.Write(tmp)
	if err != nil {
		var we *WriteError
		if errors.As(err, &we) {
			we.Path = req.Output
		}
		var te *TemplateError
		if errors.As(err, &te) && te.Path == "" {
			te.Path = req.Template
		}
		return nil, err
	}

	if err := tmp.Close(); err != nil {
		return nil, &WriteError{Path: req.Output, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return nil, &WriteError{Path: req.Output, Err: err}
	}
	if err := os.Rename(tmp.Name(), req.Output); err != nil {
		return nil, &WriteError{Path: req.Output, Err: err}
	}
	committed = true
	return result, nil
}
