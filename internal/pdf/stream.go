package pdf

import (
	"fmt"
	"io"

	pdflib "github.com/digitorus/pdf"
)

// ReadStream returns the decoded data of a stream object.
func ReadStream(v pdflib.Value) ([]byte, error) {
	if v.Kind() != pdflib.Stream {
		return nil, fmt.Errorf("object %d is not a stream", PtrOf(v).ID)
	}
	rc := v.Reader()
	if rc == nil {
		return nil, fmt.Errorf("stream %d has no reader", PtrOf(v).ID)
	}
	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream %d: %w", PtrOf(v).ID, err)
	}
	return data, nil
}
