// Package update writes incremental updates to an existing PDF.
//
// The original bytes are copied unchanged into the output buffer. New and
// replaced objects are appended after them, followed by a cross-reference
// section of the same flavour as the source document (table or stream) that
// chains back to the original one through /Prev.
package update

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/digitorus/pdf"
	"github.com/mattetti/filebuffer"

	pdfenc "github.com/digitorus/pdffill/internal/pdf"
)

type xrefEntry struct {
	ID     uint32
	Gen    uint16
	Offset int64
}

// Context holds the state of one incremental update.
type Context struct {
	InputFile    io.ReadSeeker
	PDFReader    *pdf.Reader
	OutputBuffer *filebuffer.Buffer
	NewXrefStart int64

	// CompressLevel determines compression level (zlib) for stream objects.
	CompressLevel int

	// InfoID is the object holding the document information dictionary,
	// zero keeps the original one.
	InfoID uint32

	lastXrefID         uint32
	newXrefEntries     []xrefEntry
	updatedXrefEntries map[uint32]xrefEntry
	finished           bool
}

// New copies input into a fresh output buffer and prepares the update.
func New(input io.ReadSeeker, rdr *pdf.Reader) (*Context, error) {
	if rdr == nil {
		return nil, errors.New("missing PDF reader")
	}
	switch rdr.XrefInformation.Type {
	case "table", "stream":
	default:
		return nil, fmt.Errorf("unsupported xref type: %q", rdr.XrefInformation.Type)
	}

	context := &Context{
		InputFile:          input,
		PDFReader:          rdr,
		OutputBuffer:       filebuffer.New([]byte{}),
		CompressLevel:      zlib.DefaultCompression,
		updatedXrefEntries: make(map[uint32]xrefEntry),
	}

	size := rdr.Trailer().Key("Size").Int64()
	if size <= 0 {
		size = rdr.XrefInformation.ItemCount
	}
	if size <= 0 {
		return nil, errors.New("invalid trailer /Size")
	}
	context.lastXrefID = uint32(size - 1)

	// Copy old file into new buffer.
	if _, err := input.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.Copy(context.OutputBuffer, input); err != nil {
		return nil, fmt.Errorf("failed to copy input: %w", err)
	}

	// File always needs an empty line after %%EOF.
	if _, err := context.OutputBuffer.Write([]byte("\n")); err != nil {
		return nil, err
	}
	return context, nil
}

func (context *Context) offset() int64 {
	return int64(context.OutputBuffer.Buff.Len())
}

func (context *Context) writeObject(id uint32, gen uint16, body []byte) error {
	if context.finished {
		return errors.New("update already finished")
	}
	header := fmt.Sprintf("%d %d obj\n", id, gen)
	if _, err := context.OutputBuffer.Write([]byte(header)); err != nil {
		return err
	}
	if _, err := context.OutputBuffer.Write(bytes.TrimSpace(body)); err != nil {
		return err
	}
	if _, err := context.OutputBuffer.Write([]byte("\nendobj\n")); err != nil {
		return err
	}
	return nil
}

// AddObject appends a new object and returns its object number.
func (context *Context) AddObject(body []byte) (uint32, error) {
	id := context.lastXrefID + uint32(len(context.newXrefEntries)) + 1
	entry := xrefEntry{ID: id, Offset: context.offset()}
	if err := context.writeObject(id, 0, body); err != nil {
		return 0, fmt.Errorf("failed to write object %d: %w", id, err)
	}
	context.newXrefEntries = append(context.newXrefEntries, entry)
	return id, nil
}

// AddStream appends a new stream object. dict holds the dictionary entries
// without /Length and /Filter, which are added here.
func (context *Context) AddStream(dict string, data []byte) (uint32, error) {
	body, err := context.encodeStream(dict, data)
	if err != nil {
		return 0, err
	}
	return context.AddObject(body)
}

func (context *Context) encodeStream(dict string, data []byte) ([]byte, error) {
	filter := ""
	if context.CompressLevel != zlib.NoCompression {
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, context.CompressLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create zlib writer: %w", err)
		}
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		data = buf.Bytes()
		filter = " /Filter /FlateDecode"
	}

	var obj bytes.Buffer
	fmt.Fprintf(&obj, "<< %s%s /Length %d >>\nstream\n", dict, filter, len(data))
	obj.Write(data)
	obj.WriteString("\nendstream")
	return obj.Bytes(), nil
}

// UpdateObject appends a new revision of an existing object.
func (context *Context) UpdateObject(id uint32, gen uint16, body []byte) error {
	if id == 0 || id > context.lastXrefID {
		return fmt.Errorf("object %d is not part of the original document", id)
	}
	entry := xrefEntry{ID: id, Gen: gen, Offset: context.offset()}
	if err := context.writeObject(id, gen, body); err != nil {
		return fmt.Errorf("failed to update object %d: %w", id, err)
	}
	context.updatedXrefEntries[id] = entry
	return nil
}

// Updated reports whether the object was replaced in this update.
func (context *Context) Updated(id uint32) bool {
	_, ok := context.updatedXrefEntries[id]
	return ok
}

func (context *Context) sortedUpdates() []xrefEntry {
	entries := make([]xrefEntry, 0, len(context.updatedXrefEntries))
	for _, e := range context.updatedXrefEntries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// Finish writes the cross-reference section and trailer and copies the
// complete document to w.
func (context *Context) Finish(w io.Writer) error {
	if context.finished {
		return errors.New("update already finished")
	}

	var err error
	switch context.PDFReader.XrefInformation.Type {
	case "stream":
		err = context.writeXrefStream()
	default:
		err = context.writeIncrXrefTable()
		if err == nil {
			err = context.writeTrailer()
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write xref: %w", err)
	}
	context.finished = true

	if _, err := w.Write(context.OutputBuffer.Buff.Bytes()); err != nil {
		return err
	}
	return nil
}

// Bytes returns the output written so far.
func (context *Context) Bytes() []byte {
	return context.OutputBuffer.Buff.Bytes()
}

func (context *Context) rootRef() string {
	return pdfenc.PtrOf(context.PDFReader.Trailer().Key("Root")).Ref()
}

func (context *Context) infoRef() string {
	if context.InfoID != 0 {
		return pdfenc.Ref(context.InfoID, 0)
	}
	info := context.PDFReader.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return pdfenc.PtrOf(info).Ref()
}

func (context *Context) idArray() string {
	id := context.PDFReader.Trailer().Key("ID")
	if id.Len() != 2 {
		return ""
	}
	return "[" + pdfenc.HexString([]byte(id.Index(0).RawString())) + " " + pdfenc.HexString([]byte(id.Index(1).RawString())) + "]"
}

func (context *Context) size() uint32 {
	return context.lastXrefID + uint32(len(context.newXrefEntries)) + 1
}
