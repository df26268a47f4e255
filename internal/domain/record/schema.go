// Package record implements the client-side data model for an OPAL-style
// clinical record server: a schema of named columns, episodes hydrated from
// raw JSON, and the items that make up each episode's clinical history. Each
// node knows how to persist itself back to the server.
package record

import (
	"errors"
	"fmt"
)

// FieldType is the declared type of a column field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldDate    FieldType = "date"
	FieldBoolean FieldType = "boolean"
	FieldNumber  FieldType = "number"
)

// Field describes one attribute of a column's records.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Column describes one named category of clinical record: its cardinality,
// optional sort key, and field set.
type Column struct {
	Name   string  `json:"name"`
	Single bool    `json:"single"`
	Sort   string  `json:"sort,omitempty"`
	Fields []Field `json:"fields"`
}

var (
	// ErrColumnNotFound reports a column name absent from the schema. This is
	// a caller error, not a recoverable runtime condition.
	ErrColumnNotFound = errors.New("column not found")

	// ErrIndexOutOfRange reports an invalid item index within a column.
	ErrIndexOutOfRange = errors.New("item index out of range")
)

// Schema is the ordered set of column descriptors served by the schema
// endpoints. It is immutable after construction and shared by every episode
// hydrated against it.
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema stores the descriptors in declaration order. Column names must be
// unique within the schema and field names unique within each column.
func NewSchema(columns []Column) (*Schema, error) {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if _, dup := index[col.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate column %q", col.Name)
		}
		fields := make(map[string]struct{}, len(col.Fields))
		for _, f := range col.Fields {
			if _, dup := fields[f.Name]; dup {
				return nil, fmt.Errorf("schema: column %q: duplicate field %q", col.Name, f.Name)
			}
			fields[f.Name] = struct{}{}
		}
		index[col.Name] = i
	}
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Schema{columns: cols, index: index}, nil
}

// NumberOfColumns returns the count of column descriptors.
func (s *Schema) NumberOfColumns() int { return len(s.columns) }

// GetColumn returns the descriptor for name.
func (s *Schema) GetColumn(name string) (*Column, error) {
	i, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return &s.columns[i], nil
}

// IsSingleton reports whether the named column holds at most one item per
// episode.
func (s *Schema) IsSingleton(name string) (bool, error) {
	col, err := s.GetColumn(name)
	if err != nil {
		return false, err
	}
	return col.Single, nil
}

// Columns returns the descriptors in declaration order.
func (s *Schema) Columns() []Column {
	cols := make([]Column, len(s.columns))
	copy(cols, s.columns)
	return cols
}
