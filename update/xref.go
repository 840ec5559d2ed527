package update

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// writeIncrXrefTable writes the incremental cross-reference table to the output buffer.
func (context *Context) writeIncrXrefTable() error {
	context.NewXrefStart = context.offset()

	if _, err := context.OutputBuffer.Write([]byte("xref\n")); err != nil {
		return fmt.Errorf("failed to write incremental xref header: %w", err)
	}

	// Updated objects each get a subsection of their own.
	for _, entry := range context.sortedUpdates() {
		line := fmt.Sprintf("%d 1\n%010d %05d n\r\n", entry.ID, entry.Offset, entry.Gen)
		if _, err := context.OutputBuffer.Write([]byte(line)); err != nil {
			return fmt.Errorf("failed to write updated xref entry: %w", err)
		}
	}

	if len(context.newXrefEntries) == 0 {
		return nil
	}

	header := fmt.Sprintf("%d %d\n", context.lastXrefID+1, len(context.newXrefEntries))
	if _, err := context.OutputBuffer.Write([]byte(header)); err != nil {
		return fmt.Errorf("failed to write starting xref object: %w", err)
	}
	for _, entry := range context.newXrefEntries {
		line := fmt.Sprintf("%010d 00000 n\r\n", entry.Offset)
		if _, err := context.OutputBuffer.Write([]byte(line)); err != nil {
			return fmt.Errorf("failed to write incremental xref entry: %w", err)
		}
	}
	return nil
}

func (context *Context) writeTrailer() error {
	var trailer bytes.Buffer
	trailer.WriteString("trailer\n<<\n")
	fmt.Fprintf(&trailer, "  /Size %d\n", context.size())
	fmt.Fprintf(&trailer, "  /Root %s\n", context.rootRef())
	if info := context.infoRef(); info != "" {
		fmt.Fprintf(&trailer, "  /Info %s\n", info)
	}
	fmt.Fprintf(&trailer, "  /Prev %d\n", context.PDFReader.XrefInformation.StartPos)
	if id := context.idArray(); id != "" {
		fmt.Fprintf(&trailer, "  /ID %s\n", id)
	}
	trailer.WriteString(">>\n")

	if _, err := context.OutputBuffer.Write(trailer.Bytes()); err != nil {
		return err
	}
	return context.writeStartXref()
}

func (context *Context) writeStartXref() error {
	if _, err := context.OutputBuffer.Write([]byte("startxref\n" + strconv.FormatInt(context.NewXrefStart, 10) + "\n")); err != nil {
		return err
	}

	// Write PDF ending.
	if _, err := context.OutputBuffer.Write([]byte("%%EOF\n")); err != nil {
		return err
	}
	return nil
}

// writeXrefStream writes the cross-reference stream, which also carries the
// trailer entries, to the output buffer.
func (context *Context) writeXrefStream() error {
	// The stream is an object itself and lists its own offset.
	xrefID := context.lastXrefID + uint32(len(context.newXrefEntries)) + 1
	context.NewXrefStart = context.offset()
	context.newXrefEntries = append(context.newXrefEntries, xrefEntry{ID: xrefID, Offset: context.NewXrefStart})

	var data bytes.Buffer
	var index []uint32
	for _, entry := range context.sortedUpdates() {
		writeXrefStreamLine(&data, 1, entry.Offset, entry.Gen)
		index = append(index, entry.ID, 1)
	}
	for _, entry := range context.newXrefEntries {
		writeXrefStreamLine(&data, 1, entry.Offset, 0)
	}
	index = append(index, context.lastXrefID+1, uint32(len(context.newXrefEntries)))

	streamBytes, err := encodeXrefStream(data.Bytes())
	if err != nil {
		return fmt.Errorf("failed to encode xref stream: %w", err)
	}

	var obj bytes.Buffer
	fmt.Fprintf(&obj, "%d 0 obj\n", xrefID)
	obj.WriteString("<< /Type /XRef\n")
	fmt.Fprintf(&obj, "  /Length %d\n", len(streamBytes))
	obj.WriteString("  /Filter /FlateDecode\n")
	obj.WriteString("  /W [ 1 4 1 ]\n")
	fmt.Fprintf(&obj, "  /Prev %d\n", context.PDFReader.XrefInformation.StartPos)
	fmt.Fprintf(&obj, "  /Size %d\n", context.size())
	obj.WriteString("  /Index [")
	for _, idx := range index {
		fmt.Fprintf(&obj, " %d", idx)
	}
	obj.WriteString(" ]\n")
	fmt.Fprintf(&obj, "  /Root %s\n", context.rootRef())
	if info := context.infoRef(); info != "" {
		fmt.Fprintf(&obj, "  /Info %s\n", info)
	}
	if id := context.idArray(); id != "" {
		fmt.Fprintf(&obj, "  /ID %s\n", id)
	}
	obj.WriteString(">>\nstream\n")
	obj.Write(streamBytes)
	obj.WriteString("\nendstream\nendobj\n")

	if _, err := context.OutputBuffer.Write(obj.Bytes()); err != nil {
		return fmt.Errorf("failed to add xref stream object: %w", err)
	}
	return context.writeStartXref()
}

func encodeXrefStream(data []byte) ([]byte, error) {
	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// writeXrefStreamLine writes a single line in the xref stream.
func writeXrefStreamLine(b io.Writer, xreftype byte, offset int64, gen uint16) {
	line := make([]byte, 6)
	line[0] = xreftype
	binary.BigEndian.PutUint32(line[1:5], uint32(offset))
	line[5] = byte(gen)
	_, _ = b.Write(line)
}
