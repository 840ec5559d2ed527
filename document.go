// Package pdffill fills PDF form templates and flattens them into static
// documents.
//
// Both AcroForm and XFA templates are supported. Filled values are rendered
// into appearance streams, drawn onto the page content and the interactive
// form is removed, so the output can no longer be edited.
//
// Basic usage:
//
//	doc, err := pdffill.OpenFile("template.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer doc.Close()
//
//	doc.SetFields(map[string]string{"name": "Jane Doe"})
//
//	result, err := doc.Write(output)
package pdffill

import (
	"compress/zlib"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	pdflib "github.com/digitorus/pdf"

	"github.com/digitorus/pdffill/fonts"
)

// Document represents a PDF form template being filled.
type Document struct {
	reader io.ReaderAt
	size   int64
	rdr    *pdflib.Reader
	closer io.Closer

	// Staged values
	pendingFields map[string]string
	xfaData       map[string]string
	xfa           bool
	info          map[string]string

	// Document settings
	font          *fonts.Font
	compressLevel int
	logger        *log.Logger
	now           func() time.Time
}

// Open initializes a Document from an io.ReaderAt (e.g., an open file or memory buffer).
// The size parameter must be the total size of the PDF in bytes.
func Open(reader io.ReaderAt, size int64) (doc *Document, err error) {
	defer recoverTemplate("", &err)

	rdr, err := pdflib.NewReader(reader, size)
	if err != nil {
		return nil, &TemplateError{Err: fmt.Errorf("failed to open PDF: %w", err)}
	}
	if !rdr.Trailer().Key("Encrypt").IsNull() {
		return nil, &TemplateError{Err: ErrEncrypted}
	}

	return &Document{
		reader:        reader,
		size:          size,
		rdr:           rdr,
		pendingFields: make(map[string]string),
		compressLevel: zlib.DefaultCompression,
		logger:        log.New(io.Discard, "", 0),
		now:           time.Now,
	}, nil
}

// OpenFile is a convenience method to initialize a Document from a file on
// disk. The file stays open until Close is called.
func OpenFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &TemplateError{Path: path, Err: err}
	}

	finfo, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, &TemplateError{Path: path, Err: fmt.Errorf("failed to stat file: %w", err)}
	}

	doc, err := Open(file, finfo.Size())
	if err != nil {
		_ = file.Close()
		if te, ok := err.(*TemplateError); ok {
			te.Path = path
		}
		return nil, err
	}
	doc.closer = file
	return doc, nil
}

// Close releases the file opened by OpenFile.
func (d *Document) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

// SetCompression configures the zlib compression level for new streams.
// Supported levels are zlib.NoCompression, zlib.BestSpeed, zlib.BestCompression, or zlib.DefaultCompression.
func (d *Document) SetCompression(level int) {
	d.compressLevel = level
}

// SetLogger routes diagnostics to l. Diagnostics are discarded by default.
func (d *Document) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	d.logger = l
}

// SetFont renders every filled value with f instead of the fonts named by
// the form.
func (d *Document) SetFont(f *fonts.Font) {
	d.font = f
}

// SetInfo adds an entry to the document information dictionary.
func (d *Document) SetInfo(key, value string) {
	if d.info == nil {
		d.info = make(map[string]string)
	}
	d.info[key] = value
}

// recoverTemplate turns a panic of the PDF reader on a malformed template
// into a TemplateError.
func recoverTemplate(path string, err *error) {
	if r := recover(); r != nil {
		*err = &TemplateError{Path: path, Err: fmt.Errorf("malformed PDF: %v", r)}
	}
}
