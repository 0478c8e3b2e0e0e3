package surgo

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/kailas-cloud/surgo/pkg/surql"
)

const tagKey = "surgo"

// modelMeta holds parsed struct tag metadata, cached per Model.
type modelMeta struct {
	typ   reflect.Type
	idIdx int // -1 if no id field

	fields []fieldMapping

	// Record-link columns and their target tables, fed to the query
	// builder for Fetch validation.
	relations map[string]string
}

type fieldMapping struct {
	structIdx int
	column    string
	record    string // target table for record links, "" otherwise
}

// parseModel reflects on T and extracts surgo struct tag metadata.
// Supported tags: `surgo:"name"`, `surgo:"name,id"`, `surgo:"name,record=user"`.
func parseModel[T any]() (*modelMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("surgo: type %s is not a struct", t)
	}

	meta := &modelMeta{typ: t, idIdx: -1, relations: map[string]string{}}

	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f.Name, tag); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// applyTag processes a single struct field's surgo tag.
func applyTag(meta *modelMeta, idx int, fieldName, tag string) error {
	name, modifier, _ := strings.Cut(tag, ",")
	if name == "" {
		return fmt.Errorf("surgo: empty column name on field %s", fieldName)
	}

	switch {
	case modifier == "id":
		if meta.idIdx != -1 {
			return fmt.Errorf("surgo: duplicate id tag on field %s", fieldName)
		}
		meta.idIdx = idx
		meta.fields = append(meta.fields, fieldMapping{structIdx: idx, column: "id"})
	case strings.HasPrefix(modifier, "record="):
		target := strings.TrimPrefix(modifier, "record=")
		if target == "" {
			return fmt.Errorf("surgo: empty record target on field %s", fieldName)
		}
		meta.relations[name] = target
		meta.fields = append(meta.fields, fieldMapping{structIdx: idx, column: name, record: target})
	case modifier == "":
		meta.fields = append(meta.fields, fieldMapping{structIdx: idx, column: name})
	default:
		return fmt.Errorf("surgo: unknown modifier %q on field %s", modifier, fieldName)
	}
	return nil
}

// Model is a generic, schema-first handle over a table. Column mapping
// and record links are inferred from T's struct tags at construction.
type Model[T any] struct {
	c     *Client
	table string
	meta  *modelMeta
}

// NewModel creates a typed handle for the given table. T must be a
// struct with surgo tags; the schema is parsed once and cached.
func NewModel[T any](c *Client, table string) (*Model[T], error) {
	meta, err := parseModel[T]()
	if err != nil {
		return nil, fmt.Errorf("new model %q: %w", table, err)
	}
	return &Model[T]{c: c, table: table, meta: meta}, nil
}

// Find starts a query with the model's record links pre-declared.
func (m *Model[T]) Find() Query {
	q := m.c.Query(m.table)
	if len(m.meta.relations) > 0 {
		q = q.Relations(m.meta.relations)
	}
	return q
}

// All executes the query and decodes every row into T.
func (m *Model[T]) All(ctx context.Context, q Query) ([]T, error) {
	rows, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]T, len(rows))
	for i, row := range rows {
		if items[i], err = m.Decode(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return items, nil
}

// First executes the query and decodes the first row, or ErrNoRows.
func (m *Model[T]) First(ctx context.Context, q Query) (T, error) {
	row, err := q.First(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return m.Decode(row)
}

// Get retrieves a record by key (direct record access, no table scan).
func (m *Model[T]) Get(ctx context.Context, key string) (T, error) {
	return m.First(ctx, m.Find().Where(Lookups{"id": surql.NewRecordID(m.table, key)}))
}

// Create inserts the item and returns the stored record.
func (m *Model[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	doc, err := m.encode(item)
	if err != nil {
		return zero, err
	}
	rows, err := m.c.Query(m.table).Insert(ctx, []map[string]any{doc})
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, ErrNoRows
	}
	return m.Decode(rows[0])
}

// Update replaces the record's mapped fields and returns the result.
func (m *Model[T]) Update(ctx context.Context, key string, item T) (T, error) {
	var zero T
	doc, err := m.encode(item)
	if err != nil {
		return zero, err
	}
	delete(doc, "id")
	rows, err := m.Find().
		Where(Lookups{"id": surql.NewRecordID(m.table, key)}).
		Update(ctx, doc)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, ErrNoRows
	}
	return m.Decode(rows[0])
}

// Delete removes a record by key.
func (m *Model[T]) Delete(ctx context.Context, key string) error {
	return m.Find().
		Where(Lookups{"id": surql.NewRecordID(m.table, key)}).
		Delete(ctx)
}

// Count returns the number of records in the table.
func (m *Model[T]) Count(ctx context.Context) (int, error) {
	return m.Find().Count(ctx)
}

// Decode converts a normalized row into T using the tag mapping.
func (m *Model[T]) Decode(row Row) (T, error) {
	v := reflect.New(m.meta.typ).Elem()
	for _, f := range m.meta.fields {
		raw, ok := row[f.column]
		if !ok || raw == nil {
			continue
		}
		if err := setField(v.Field(f.structIdx), raw); err != nil {
			return v.Interface().(T), fmt.Errorf("field %s: %w", f.column, err)
		}
	}
	return v.Interface().(T), nil
}

// encode converts the item into a column map. The id field, when tagged
// and non-empty, becomes a RecordID so inserts keep their key.
func (m *Model[T]) encode(item T) (map[string]any, error) {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	doc := make(map[string]any, len(m.meta.fields))
	for _, f := range m.meta.fields {
		fv := v.Field(f.structIdx)
		if f.column == "id" {
			key := recordKeyOf(fv)
			if key != "" {
				doc["id"] = surql.NewRecordID(m.table, key)
			}
			continue
		}
		if f.record != "" {
			ref, err := recordRefOf(fv, f.record)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.column, err)
			}
			if !ref.IsZero() {
				doc[f.column] = ref
			}
			continue
		}
		doc[f.column] = fv.Interface()
	}
	return doc, nil
}

// recordKeyOf extracts a record key from a string or RecordID field.
func recordKeyOf(v reflect.Value) string {
	switch val := v.Interface().(type) {
	case string:
		if id, ok := surql.ParseRecordID(val); ok {
			return id.Key
		}
		return val
	case surql.RecordID:
		return val.Key
	default:
		return ""
	}
}

// recordRefOf builds a RecordID for a record-link field. Bare string keys
// get the declared target table.
func recordRefOf(v reflect.Value, target string) (surql.RecordID, error) {
	switch val := v.Interface().(type) {
	case string:
		if val == "" {
			return surql.RecordID{}, nil
		}
		if id, ok := surql.ParseRecordID(val); ok {
			return id, nil
		}
		return surql.NewRecordID(target, val), nil
	case surql.RecordID:
		return val, nil
	default:
		return surql.RecordID{}, fmt.Errorf("record link must be string or RecordID, got %T", val)
	}
}

// setField assigns a normalized row value to a struct field, converting
// between the JSON type system and the field's Go type.
func setField(field reflect.Value, raw any) error {
	// Typed targets first.
	switch field.Interface().(type) {
	case surql.RecordID:
		switch val := raw.(type) {
		case surql.RecordID:
			field.Set(reflect.ValueOf(val))
			return nil
		case string:
			if id, ok := surql.ParseRecordID(val); ok {
				field.Set(reflect.ValueOf(id))
				return nil
			}
		}
		return fmt.Errorf("cannot decode %T into RecordID", raw)
	case time.Time:
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("cannot decode %T into time.Time", raw)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(ts))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		switch val := raw.(type) {
		case string:
			field.SetString(val)
		case surql.RecordID:
			field.SetString(val.String())
		default:
			return fmt.Errorf("cannot decode %T into string", raw)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := asFloat64(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(n))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := asFloat64(raw)
		if err != nil {
			return err
		}
		field.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		n, err := asFloat64(raw)
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("cannot decode %T into bool", raw)
		}
		field.SetBool(b)
	default:
		// Composite kinds (slices, maps, nested structs) go through a
		// JSON round-trip.
		data, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		target := reflect.New(field.Type())
		if err := json.Unmarshal(data, target.Interface()); err != nil {
			return err
		}
		field.Set(target.Elem())
	}
	return nil
}

func asFloat64(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("cannot decode %T into number", raw)
	}
}
