package surql

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RecordID is a structured record reference: table name plus record key.
// It renders as the native unquoted record literal (user:42), which is a
// distinct type from the string 'user:42' in SurrealQL — quoting it would
// silently change equality semantics.
type RecordID struct {
	Table string
	Key   string
}

// NewRecordID builds a record reference.
func NewRecordID(table, key string) RecordID {
	return RecordID{Table: table, Key: key}
}

// ParseRecordID parses "table:key" into a RecordID. URL-like strings
// (anything containing "://") never parse even though they contain a colon.
func ParseRecordID(s string) (RecordID, bool) {
	if strings.Contains(s, "://") {
		return RecordID{}, false
	}
	m := recordIDRe.FindStringSubmatch(s)
	if m == nil {
		return RecordID{}, false
	}
	return RecordID{Table: m[1], Key: m[2]}, true
}

// IsZero reports whether the reference is empty.
func (r RecordID) IsZero() bool { return r.Table == "" && r.Key == "" }

// String renders the unquoted record literal. Keys that are not plain
// identifiers are wrapped in ⟨⟩ per SurrealQL complex record id syntax.
func (r RecordID) String() string {
	if plainKeyRe.MatchString(r.Key) {
		return r.Table + ":" + r.Key
	}
	return r.Table + ":⟨" + strings.ReplaceAll(r.Key, "⟩", "\\⟩") + "⟩"
}

// MarshalJSON encodes the reference as its "table:key" string form.
func (r RecordID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Table + ":" + r.Key)
}

// UnmarshalJSON decodes "table:key" strings. Strings that do not look
// like record references leave the whole value in Key.
func (r *RecordID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if parsed, ok := ParseRecordID(s); ok {
		*r = parsed
		return nil
	}
	if table, key, found := strings.Cut(s, ":"); found {
		*r = RecordID{Table: table, Key: key}
		return nil
	}
	*r = RecordID{Key: s}
	return nil
}

var (
	identRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	plainKeyRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	recordIDRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*):([A-Za-z0-9_]+)$`)
)

// reservedWords are SurrealQL keywords that cannot appear as bare
// identifiers. Checked case-insensitively.
var reservedWords = map[string]struct{}{
	"select": {}, "from": {}, "where": {}, "group": {}, "order": {},
	"by": {}, "limit": {}, "start": {}, "fetch": {}, "split": {},
	"omit": {}, "timeout": {}, "parallel": {}, "tempfiles": {},
	"explain": {}, "with": {}, "index": {}, "noindex": {},
	"and": {}, "or": {}, "not": {}, "in": {}, "inside": {},
	"contains": {}, "containsany": {}, "containsall": {}, "containsnone": {},
	"true": {}, "false": {}, "none": {}, "null": {},
	"as": {}, "asc": {}, "desc": {}, "only": {}, "value": {},
	"insert": {}, "update": {}, "delete": {}, "relate": {}, "create": {},
	"define": {}, "return": {}, "set": {}, "merge": {}, "content": {},
	"if": {}, "then": {}, "else": {}, "end": {}, "let": {},
	"begin": {}, "commit": {}, "cancel": {}, "for": {},
}

// EscapeIdent renders a field or table name. Plain dotted identifier paths
// are emitted bare for readability; anything else is wrapped in backticks
// with embedded backticks doubled.
func EscapeIdent(name string) string {
	if identRe.MatchString(name) && !hasReservedSegment(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func hasReservedSegment(name string) bool {
	for _, seg := range strings.Split(name, ".") {
		if _, ok := reservedWords[strings.ToLower(seg)]; ok {
			return true
		}
	}
	return false
}

// EscapeLiteral renders a Go value as SurrealQL literal text. Strings are
// quoted, numbers and booleans use their canonical form, nil renders NULL,
// slices recurse into bracketed lists, maps into object literals.
// Values with no literal representation report ErrEscape, never a silent
// string conversion.
func EscapeLiteral(v any) (string, error) {
	return escapeValue(v, false)
}

// escapeValue renders v. When ref is true the position expects a native
// record reference (id comparisons, INSIDE array elements), so strings
// shaped like record ids are promoted to the unquoted literal form.
// Everywhere else the same string stays quoted — this asymmetry is
// load-bearing: 'user:1' and user:1 are different values in SurrealQL.
func escapeValue(v any, ref bool) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		return strconv.FormatBool(x), nil
	case string:
		if ref {
			if rid, ok := ParseRecordID(x); ok {
				return rid.String(), nil
			}
		}
		return quoteString(x), nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case time.Duration:
		return formatDuration(x), nil
	case time.Time:
		return "d'" + x.UTC().Format(time.RFC3339Nano) + "'", nil
	case RecordID:
		return x.String(), nil
	}
	return escapeReflected(v, ref)
}

// escapeReflected handles slices, maps and pointers that did not match a
// concrete case above.
func escapeReflected(v any, ref bool) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "NULL", nil
		}
		return escapeValue(rv.Elem().Interface(), ref)
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			lit, err := escapeValue(rv.Index(i).Interface(), ref)
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return "", fmt.Errorf("%w: map with %s keys", ErrEscape, rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			lit, err := escapeValue(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface(), ref)
			if err != nil {
				return "", err
			}
			parts[i] = objectKey(k) + ": " + lit
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil
	default:
		return "", fmt.Errorf("%w: %T", ErrEscape, v)
	}
}

// objectKey renders a key of an object literal: bare when it is a plain
// identifier, quoted otherwise.
func objectKey(k string) string {
	if identRe.MatchString(k) && !strings.Contains(k, ".") {
		return k
	}
	return quoteString(k)
}

func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: non-finite float %v", ErrEscape, f)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

// formatDuration renders a SurrealQL duration literal using the coarsest
// unit that represents the value exactly, so sub-millisecond durations
// never truncate to 0ms.
func formatDuration(d time.Duration) string {
	switch {
	case d%time.Second == 0:
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	case d%time.Millisecond == 0:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	case d%time.Microsecond == 0:
		return strconv.FormatInt(d.Microseconds(), 10) + "us"
	default:
		return strconv.FormatInt(d.Nanoseconds(), 10) + "ns"
	}
}
