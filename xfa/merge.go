package xfa

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// span locates an element inside an XML document by byte offsets.
type span struct {
	start, startEnd int64 // start tag
	endStart, end   int64 // end tag, equal to startEnd for empty elements
	qname           string
	selfClosing     bool
}

func locate(data []byte, match func(name xml.Name, depth int) bool) (span, bool, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	depth := 0
	foundDepth := -1
	var found span

	for {
		prev := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			return span{}, false, nil
		}
		if err != nil {
			return span{}, false, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if foundDepth < 0 && match(t.Name, depth) {
				foundDepth = depth
				found = span{start: prev, startEnd: dec.InputOffset()}
				tag := data[found.start:found.startEnd]
				found.selfClosing = bytes.HasSuffix(tag, []byte("/>"))
				found.qname = string(tag[1:])
				if i := strings.IndexAny(found.qname, " \t\r\n/>"); i >= 0 {
					found.qname = found.qname[:i]
				}
			}
			depth++
		case xml.EndElement:
			depth--
			if foundDepth >= 0 && depth == foundDepth {
				found.endStart = prev
				found.end = dec.InputOffset()
				if found.selfClosing {
					found.endStart = found.startEnd
				}
				return found, true, nil
			}
		}
	}
}

func isData(name xml.Name, depth int) bool {
	return depth <= 1 && name.Local == "data" && (name.Space == DataNamespace || name.Space == "xfa")
}

func findElement(data []byte, local string, maxDepth int) (int64, int64, bool) {
	s, ok, err := locate(data, func(name xml.Name, depth int) bool {
		return depth <= maxDepth && name.Local == local
	})
	if err != nil || !ok {
		return 0, 0, false
	}
	return s.start, s.end, true
}

// MergeDatasets replaces the content of the xfa:data element of a datasets
// packet with body. Missing data or datasets elements are created.
func MergeDatasets(datasets, body []byte) ([]byte, error) {
	dataElement := func(open string) []byte {
		var b bytes.Buffer
		b.WriteString(open)
		b.Write(body)
		b.WriteString("</xfa:data>")
		return b.Bytes()
	}

	if len(bytes.TrimSpace(datasets)) == 0 {
		var b bytes.Buffer
		b.WriteString(`<xfa:datasets xmlns:xfa="` + DataNamespace + `">`)
		b.Write(dataElement("<xfa:data>"))
		b.WriteString("</xfa:datasets>")
		return b.Bytes(), nil
	}

	s, ok, err := locate(datasets, isData)
	if err != nil {
		return nil, fmt.Errorf("malformed datasets packet: %w", err)
	}
	if ok {
		return splice(datasets, s, body), nil
	}

	ds, ok, err := locate(datasets, func(name xml.Name, depth int) bool {
		return depth == 0 && name.Local == "datasets"
	})
	if err != nil {
		return nil, fmt.Errorf("malformed datasets packet: %w", err)
	}
	if !ok {
		return nil, errors.New("datasets packet has no datasets element")
	}

	inserted := dataElement(`<xfa:data xmlns:xfa="` + DataNamespace + `">`)
	if !ds.selfClosing {
		// Existing children, such as xfa:dataDescription, are kept.
		var b bytes.Buffer
		b.Write(datasets[:ds.startEnd])
		b.Write(inserted)
		b.Write(datasets[ds.startEnd:])
		return b.Bytes(), nil
	}
	return splice(datasets, ds, inserted), nil
}

// splice replaces the content of the element at s with body. Empty elements
// are expanded into a start and end tag.
func splice(data []byte, s span, body []byte) []byte {
	var b bytes.Buffer
	if s.selfClosing {
		b.Write(data[:s.start])
		b.Write(bytes.TrimRight(bytes.TrimSuffix(data[s.start:s.startEnd], []byte("/>")), " \t\r\n"))
		b.WriteString(">")
		b.Write(body)
		b.WriteString("</" + s.qname + ">")
		b.Write(data[s.end:])
		return b.Bytes()
	}
	b.Write(data[:s.startEnd])
	b.Write(body)
	b.Write(data[s.endStart:])
	return b.Bytes()
}

// Values returns the text of every leaf element below xfa:data, keyed by the
// dot separated element path (for example form1.page1.name). The first
// occurrence of a repeated path wins.
func Values(datasets []byte) (map[string]string, error) {
	s, ok, err := locate(datasets, isData)
	if err != nil {
		return nil, fmt.Errorf("malformed datasets packet: %w", err)
	}
	values := make(map[string]string)
	if !ok {
		return values, nil
	}

	dec := xml.NewDecoder(bytes.NewReader(datasets[s.startEnd:s.endStart]))
	type frame struct {
		name     string
		text     strings.Builder
		children bool
	}
	var stack []*frame

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed data: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > 0 {
				stack[len(stack)-1].children = true
			}
			stack = append(stack, &frame{name: t.Name.Local})
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if !top.children {
				names := make([]string, len(stack))
				for i, f := range stack {
					names[i] = f.name
				}
				path := strings.Join(names, ".")
				if _, exists := values[path]; !exists {
					values[path] = top.text.String()
				}
			}
			stack = stack[:len(stack)-1]
		}
	}
	return values, nil
}

var somIndex = regexp.MustCompile(`\[\d+\]`)

// NormalizeSOM strips the occurrence indexes from a scripting object model
// name, so form1[0].page1[0].name[0] becomes form1.page1.name.
func NormalizeSOM(name string) string {
	return somIndex.ReplaceAllString(name, "")
}

// Bind maps AcroForm field names to the data paths holding their values. A
// field matches a path when its name, or its name without occurrence
// indexes, equals the path. Otherwise the last name segments are compared,
// as long as the segment identifies a single path.
func Bind(data map[string]string, fieldNames []string) map[string]string {
	byLeaf := make(map[string]string)
	ambiguous := make(map[string]bool)
	for path := range data {
		leaf := path[strings.LastIndexByte(path, '.')+1:]
		if _, ok := byLeaf[leaf]; ok {
			ambiguous[leaf] = true
		}
		byLeaf[leaf] = path
	}

	bound := make(map[string]string)
	for _, name := range fieldNames {
		if _, ok := data[name]; ok {
			bound[name] = name
			continue
		}
		normalized := NormalizeSOM(name)
		if _, ok := data[normalized]; ok {
			bound[name] = normalized
			continue
		}
		leaf := normalized[strings.LastIndexByte(normalized, '.')+1:]
		if path, ok := byLeaf[leaf]; ok && !ambiguous[leaf] {
			bound[name] = path
		}
	}
	return bound
}
