package wrapper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	pathKey     = "path"
	languageKey = "language"
)

// Field is a descriptor key other than path and language.
type Field struct {
	Key   string
	Value any
}

// File describes one repository file. Keys beyond path and language are kept in Extra
// and forwarded to the model untouched.
type File struct {
	Path     string  `json:"path"`
	Language string  `json:"language"`
	Extra    []Field `json:"-"`

	// order is the decoded key order, set only when it differs from path, language, Extra...
	order []string
}

// FileFromMap builds a File from an unordered mapping; extra keys are sorted.
func FileFromMap(m map[string]any) File {
	var f File
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f.set(k, m[k])
	}
	return f
}

func (f *File) set(key string, value any) {
	s, isString := value.(string)
	switch {
	case key == pathKey && isString:
		f.Path = s
	case key == languageKey && isString:
		f.Language = s
	default:
		f.Extra = append(f.Extra, Field{Key: key, Value: value})
	}
}

func (f *File) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeOrdered(dec)
	if err != nil {
		return err
	}
	fields, ok := v.([]Field)
	if !ok {
		return errors.New("file descriptor must be a JSON object")
	}

	*f = File{}
	keys := make([]string, 0, len(fields))
	for _, field := range fields {
		keys = append(keys, field.Key)
		f.set(field.Key, field.Value)
	}
	canonical := len(keys) >= 2 && keys[0] == pathKey && keys[1] == languageKey && len(f.Extra) == len(keys)-2
	if !canonical {
		f.order = keys
	}
	return nil
}

// decodeOrdered reads one JSON value keeping object key order. Objects become []Field,
// numbers json.Number. A repeated key keeps its first position and its last value.
func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		var fields []Field
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			value, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			fields = setField(fields, key, value)
		}
		if _, err = dec.Token(); err != nil {
			return nil, err
		}
		if fields == nil {
			fields = []Field{}
		}
		return fields, nil
	case '[':
		items := []any{}
		for dec.More() {
			item, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if _, err = dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

func setField(fields []Field, key string, value any) []Field {
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Value = value
			return fields
		}
	}
	return append(fields, Field{Key: key, Value: value})
}

func (f File) value(key string) any {
	for _, e := range f.Extra {
		if e.Key == key {
			return e.Value
		}
	}
	switch key {
	case pathKey:
		return f.Path
	case languageKey:
		return f.Language
	}
	return nil
}

// String renders the file the way the prompt example does: {'path': '...', 'language': '...'},
// followed by any extra keys.
func (f File) String() string {
	keys := f.order
	if keys == nil {
		keys = []string{pathKey, languageKey}
		for _, e := range f.Extra {
			if e.Key != pathKey && e.Key != languageKey {
				keys = append(keys, e.Key)
			}
		}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, quote(k)+": "+repr(f.value(k)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func FormatFiles(files []File) string {
	parts := make([]string, 0, len(files))
	for _, f := range files {
		parts = append(parts, f.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// repr prints v the way Python prints the equivalent literal.
func repr(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return quote(t)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			return s
		}
		f, err := t.Float64()
		if err != nil {
			return s
		}
		return reprFloat(f)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		// unordered sources such as protobuf Struct carry every number as a double
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return strconv.FormatInt(int64(t), 10)
		}
		return reprFloat(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			items = append(items, repr(item))
		}
		return "[" + strings.Join(items, ", ") + "]"
	case []Field:
		items := make([]string, 0, len(t))
		for _, field := range t {
			items = append(items, quote(field.Key)+": "+repr(field.Value))
		}
		return "{" + strings.Join(items, ", ") + "}"
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, 0, len(keys))
		for _, k := range keys {
			items = append(items, quote(k)+": "+repr(t[k]))
		}
		return "{" + strings.Join(items, ", ") + "}"
	default:
		return quote(fmt.Sprint(t))
	}
}

func reprFloat(f float64) string {
	s := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(s[strings.IndexByte(s, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return s
	}
	s = strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// quote prefers single quotes and switches to double quotes only when that avoids escaping.
func quote(s string) string {
	q := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}

	var b strings.Builder
	b.WriteRune(q)
	for _, r := range s {
		switch {
		case r == q || r == '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(q)
	return b.String()
}
