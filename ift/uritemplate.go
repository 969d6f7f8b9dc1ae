package ift

import (
	"encoding/base32"
	"encoding/base64"
	"strings"
)

// base32hexNoPad is RFC 4648 base32hex without padding, used for {id}.
var base32hexNoPad = base32.HexEncoding.WithPadding(base32.NoPadding)

// ExpandURI expands template against id, per the RFC 6570 level-3 subset
// supported by IFT: {id}, {id64}, {d1}..{d4}. A '/' operator prefixes the
// expansion with '/' and joins the values with '/'; a '+' operator or no
// operator joins them with ','. No operator percent-encodes the values; the
// only escaping is the '=' to %3D substitution in {id64}.
func ExpandURI(template string, id []byte) string {
	idStr := encodeID(id)
	id64 := encodeID64(id)
	digits := idDigits(idStr)

	var out strings.Builder
	i := 0
	for i < len(template) {
		if template[i] != '{' {
			out.WriteByte(template[i])
			i++
			continue
		}
		end := strings.IndexByte(template[i:], '}')
		if end < 0 {
			out.WriteString(template[i:])
			break
		}
		expr := template[i+1 : i+end]
		i += end + 1

		op := byte(0)
		if len(expr) > 0 && (expr[0] == '/' || expr[0] == '+') {
			op = expr[0]
			expr = expr[1:]
		}
		vars := strings.Split(expr, ",")
		values := make([]string, 0, len(vars))
		for _, v := range vars {
			values = append(values, expandVar(v, idStr, id64, digits))
		}
		sep := ","
		if op == '/' {
			sep = "/"
		}
		joined := strings.Join(values, sep)
		if op == '/' {
			out.WriteByte('/')
		}
		out.WriteString(joined)
	}
	return out.String()
}

func expandVar(name, idStr, id64 string, digits []byte) string {
	switch name {
	case "id":
		return idStr
	case "id64":
		return percentEncodeEquals(id64)
	case "d1", "d2", "d3", "d4":
		n := int(name[1] - '0')
		if n > len(digits) {
			return "_"
		}
		return string(digits[len(digits)-n])
	default:
		return ""
	}
}

// encodeID encodes id as base32hex without padding, trimming leading zero
// bytes first (so a numeric id of e.g. 123 doesn't carry a long run of
// leading "0" characters from its fixed-width byte representation).
func encodeID(id []byte) string {
	trimmed := trimLeadingZeros(id)
	if len(trimmed) == 0 {
		trimmed = []byte{0}
	}
	return base32hexNoPad.EncodeToString(trimmed)
}

func encodeID64(id []byte) string {
	trimmed := trimLeadingZeros(id)
	if len(trimmed) == 0 {
		trimmed = []byte{0}
	}
	return base64.URLEncoding.EncodeToString(trimmed)
}

func trimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b)-1 && b[i] == 0 {
		i++
	}
	if len(b) == 0 {
		return b
	}
	return b[i:]
}

// percentEncodeEquals replaces each '=' padding character with %3D.
// base64.URLEncoding pads its output with '=' whenever the trimmed id's
// length is not a multiple of 3.
func percentEncodeEquals(s string) string {
	return strings.ReplaceAll(s, "=", "%3D")
}

// idDigits returns the digits of idStr in left-to-right order, so that
// digits[len-1] is d1 (rightmost), digits[len-2] is d2, and so on.
func idDigits(idStr string) []byte {
	return []byte(idStr)
}
