// Package recordlayout encodes field→value mappings into fixed-width text
// records following a declared schema. It only knows column layout; which
// fields a caller projects into a record is the caller's business.
package recordlayout

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FieldType selects the padding and formatting rule for a field.
type FieldType int

const (
	// Alpha fields are left-justified and space padded.
	Alpha FieldType = iota
	// Numeric fields are right-justified and zero padded.
	Numeric
	// Amount fields carry a sign column (' ' or 'N') followed by the
	// absolute value in cents, zero padded.
	Amount
	// Date fields are rendered as YYYYMMDD, zeros when absent.
	Date
)

// Field is a single column range of a schema.
type Field struct {
	Name string
	Size int
	Type FieldType
}

// Schema describes one record layout as a contiguous field list.
type Schema struct {
	Name   string
	Fields []Field
}

// Blank is a filler field of n spaces.
func Blank(n int) Field {
	return Field{Name: "", Size: n, Type: Alpha}
}

// Length returns the record length in characters.
func (s Schema) Length() int {
	total := 0
	for _, f := range s.Fields {
		total += f.Size
	}
	return total
}

// Values maps schema field names to values. Accepted value kinds are string,
// int, int64, decimal.Decimal and time.Time. Missing fields encode as their
// type's blank representation.
type Values map[string]any

// Encode renders one record line for the schema. Alpha values longer than the
// field are truncated; numeric overflow is an error.
func (s Schema) Encode(v Values) (string, error) {
	var b strings.Builder
	b.Grow(s.Length())
	for _, f := range s.Fields {
		raw, ok := v[f.Name]
		if f.Name == "" {
			ok = false
		}
		encoded, err := encodeField(f, raw, ok)
		if err != nil {
			return "", fmt.Errorf("schema %s field %s: %w", s.Name, f.Name, err)
		}
		b.WriteString(encoded)
	}
	return b.String(), nil
}

func encodeField(f Field, raw any, present bool) (string, error) {
	switch f.Type {
	case Alpha:
		text := ""
		if present {
			switch val := raw.(type) {
			case string:
				text = val
			case fmt.Stringer:
				text = val.String()
			default:
				return "", fmt.Errorf("unsupported alpha value %T", raw)
			}
		}
		// Width is counted in runes: the payload ends up one byte per
		// character once transcoded to Latin-1.
		runes := []rune(text)
		if len(runes) > f.Size {
			runes = runes[:f.Size]
		}
		return string(runes) + strings.Repeat(" ", f.Size-len(runes)), nil
	case Numeric:
		n := int64(0)
		if present {
			switch val := raw.(type) {
			case int:
				n = int64(val)
			case int64:
				n = val
			case string:
				parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
				if err != nil {
					return "", fmt.Errorf("numeric value %q: %w", val, err)
				}
				n = parsed
			default:
				return "", fmt.Errorf("unsupported numeric value %T", raw)
			}
		}
		text := strconv.FormatInt(n, 10)
		if len(text) > f.Size {
			return "", fmt.Errorf("numeric value %d overflows %d columns", n, f.Size)
		}
		return strings.Repeat("0", f.Size-len(text)) + text, nil
	case Amount:
		amount := decimal.Zero
		if present {
			val, ok := raw.(decimal.Decimal)
			if !ok {
				return "", fmt.Errorf("unsupported amount value %T", raw)
			}
			amount = val
		}
		sign := " "
		if amount.IsNegative() {
			sign = "N"
		}
		cents := amount.Abs().Shift(2).Round(0).String()
		if len(cents)+1 > f.Size {
			return "", fmt.Errorf("amount %s overflows %d columns", amount, f.Size)
		}
		return sign + strings.Repeat("0", f.Size-1-len(cents)) + cents, nil
	case Date:
		if !present {
			return strings.Repeat("0", f.Size), nil
		}
		t, ok := raw.(time.Time)
		if !ok {
			return "", fmt.Errorf("unsupported date value %T", raw)
		}
		if t.IsZero() {
			return strings.Repeat("0", f.Size), nil
		}
		return t.Format("20060102"), nil
	default:
		return "", fmt.Errorf("unknown field type %d", f.Type)
	}
}

// Write joins encoded records into a declaration payload, one record per line
// terminated by CRLF.
func Write(records []string) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r)
		b.WriteString("\r\n")
	}
	return b.String()
}
