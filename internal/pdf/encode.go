package pdf

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// String encodes text as a PDF text string. ASCII text is written as an
// escaped literal, anything else as UTF-16BE with a byte order mark.
func String(text string) string {
	if !isASCII(text) {
		enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		res, _, err := transform.String(enc, text)
		if err != nil {
			// Invalid UTF-8 input, keep the raw bytes.
			return HexString([]byte(text))
		}
		return HexString([]byte(res))
	}
	return Literal([]byte(text))
}

// Literal writes raw bytes as a literal string, escaping delimiters and
// non-printable bytes.
func Literal(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) + 2)
	sb.WriteByte('(')
	for _, c := range b {
		switch c {
		case '(', ')', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\r':
			sb.WriteString("\\r")
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		default:
			if c < 32 || c > 126 {
				fmt.Fprintf(&sb, "\\%03o", c)
				continue
			}
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// HexString writes raw bytes as a hexadecimal string.
func HexString(b []byte) string {
	return "<" + hex.EncodeToString(b) + ">"
}

// Name writes a name object, escaping bytes that are not regular characters.
func Name(name string) string {
	var sb strings.Builder
	sb.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 33 || c > 126 || strings.IndexByte("#()<>[]{}/%", c) >= 0 {
			fmt.Fprintf(&sb, "#%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// Number formats a real number without exponent and trailing zeros.
func Number(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Ref formats an indirect reference.
func Ref(id uint32, gen uint16) string {
	return strconv.FormatUint(uint64(id), 10) + " " + strconv.FormatUint(uint64(gen), 10) + " R"
}

// DateTime formats a date as a PDF date string.
func DateTime(date time.Time) string {
	_, offset := date.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hours := offset / 3600
	minutes := (offset % 3600) / 60

	return String(fmt.Sprintf("D:%s%s%02d'%02d'", date.Format("20060102150405"), sign, hours, minutes))
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > '\u007F' {
			return false
		}
	}
	return true
}
