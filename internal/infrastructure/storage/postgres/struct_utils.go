package postgres

import (
	"reflect"
	"slices"
	"sync"
)

// column is a "db"-tagged field and its index path through embedded structs.
type column struct {
	name  string
	index []int
}

var columnCache sync.Map // map[reflect.Type][]column

func columnsOf(t reflect.Type) []column {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []column
	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous || !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, column{name: tag, index: f.Index})
	}
	columnCache.Store(t, cols)
	return cols
}

// ExtractDBColumns returns the column names from struct "db" tags,
// descending into embedded structs. Repositories call it once at construction.
//
//	columns := ExtractDBColumns[series.Series]()
//	// ["id", "code", "name", "year", ...]
func ExtractDBColumns[T any]() []string {
	cols := columnsOf(reflect.TypeFor[T]())
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap converts a struct to a column map for squirrel SetMap.
// Columns named in omit are left out. Non-struct values return nil.
func StructToMap(v any, omit ...string) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := columnsOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		if slices.Contains(omit, c.name) {
			continue
		}
		res[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return res
}
