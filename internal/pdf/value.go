package pdf

import (
	"bytes"
	"sort"
	"strconv"

	pdflib "github.com/digitorus/pdf"
)

// Ptr identifies an indirect object.
type Ptr struct {
	ID  uint32
	Gen uint16
}

// PtrOf returns the indirect object v was loaded from. Direct values report
// the object that contains them.
func PtrOf(v pdflib.Value) Ptr {
	p := v.GetPtr()
	return Ptr{ID: uint32(p.GetID()), Gen: uint16(p.GetGen())}
}

// Ref formats p as an indirect reference.
func (p Ptr) Ref() string {
	return Ref(p.ID, p.Gen)
}

// Serialize writes v in PDF syntax. Values stored in other indirect objects
// are written as references, so the result can replace the object v came
// from without duplicating the objects it points to.
func Serialize(v pdflib.Value) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v, PtrOf(v))
	return buf.Bytes()
}

// SerializeDict writes the dictionary v with the keys in drop removed and the
// keys in set replaced by their raw PDF syntax.
func SerializeDict(v pdflib.Value, set map[string]string, drop ...string) []byte {
	owner := PtrOf(v)
	skip := make(map[string]bool, len(drop)+len(set))
	for _, k := range drop {
		skip[k] = true
	}
	for k := range set {
		skip[k] = true
	}

	var buf bytes.Buffer
	buf.WriteString("<<")
	if v.Kind() == pdflib.Dict {
		keys := v.Keys()
		sort.Strings(keys)
		for _, key := range keys {
			if skip[key] {
				continue
			}
			buf.WriteString("\n  ")
			buf.WriteString(Name(key))
			buf.WriteByte(' ')
			writeChild(&buf, v.Key(key), owner)
		}
	}

	extra := make([]string, 0, len(set))
	for k := range set {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, key := range extra {
		buf.WriteString("\n  ")
		buf.WriteString(Name(key))
		buf.WriteByte(' ')
		buf.WriteString(set[key])
	}
	buf.WriteString("\n>>")
	return buf.Bytes()
}

// SerializeEntries writes every entry of the dictionary v as "/Key value"
// pairs without the surrounding brackets, for merging into a new dictionary.
func SerializeEntries(v pdflib.Value, drop ...string) map[string]string {
	out := make(map[string]string)
	if v.Kind() != pdflib.Dict {
		return out
	}
	skip := make(map[string]bool, len(drop))
	for _, k := range drop {
		skip[k] = true
	}
	owner := PtrOf(v)
	for _, key := range v.Keys() {
		if skip[key] {
			continue
		}
		var buf bytes.Buffer
		writeChild(&buf, v.Key(key), owner)
		out[key] = buf.String()
	}
	return out
}

func writeChild(buf *bytes.Buffer, c pdflib.Value, owner Ptr) {
	p := PtrOf(c)
	if p.ID != 0 && p != owner {
		buf.WriteString(p.Ref())
		return
	}
	writeValue(buf, c, owner)
}

func writeValue(buf *bytes.Buffer, v pdflib.Value, owner Ptr) {
	switch v.Kind() {
	case pdflib.Null:
		buf.WriteString("null")
	case pdflib.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case pdflib.Integer:
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
	case pdflib.Real:
		buf.WriteString(Number(v.Float64()))
	case pdflib.String:
		buf.WriteString(HexString([]byte(v.RawString())))
	case pdflib.Name:
		buf.WriteString(Name(v.Name()))
	case pdflib.Array:
		buf.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeChild(buf, v.Index(i), owner)
		}
		buf.WriteByte(']')
	case pdflib.Dict:
		buf.WriteString("<<")
		keys := v.Keys()
		sort.Strings(keys)
		for _, key := range keys {
			buf.WriteByte(' ')
			buf.WriteString(Name(key))
			buf.WriteByte(' ')
			writeChild(buf, v.Key(key), owner)
		}
		buf.WriteString(" >>")
	case pdflib.Stream:
		// Streams are always indirect.
		buf.WriteString(PtrOf(v).Ref())
	default:
		buf.WriteString("null")
	}
}

// Rect reads a rectangle array and normalizes it so the first corner is the
// lower left one.
func Rect(v pdflib.Value) [4]float64 {
	var r [4]float64
	for i := 0; i < 4 && i < v.Len(); i++ {
		r[i] = v.Index(i).Float64()
	}
	if r[0] > r[2] {
		r[0], r[2] = r[2], r[0]
	}
	if r[1] > r[3] {
		r[1], r[3] = r[3], r[1]
	}
	return r
}

// Matrix reads a transformation matrix, defaulting to identity.
func Matrix(v pdflib.Value) [6]float64 {
	m := [6]float64{1, 0, 0, 1, 0, 0}
	if v.Kind() != pdflib.Array || v.Len() != 6 {
		return m
	}
	for i := 0; i < 6; i++ {
		m[i] = v.Index(i).Float64()
	}
	return m
}

// Inherited looks key up on v and then on its /Parent chain.
func Inherited(v pdflib.Value, key string) pdflib.Value {
	for depth := 0; depth < 64 && !v.IsNull(); depth++ {
		if val := v.Key(key); !val.IsNull() {
			return val
		}
		v = v.Key("Parent")
	}
	return pdflib.Value{}
}
