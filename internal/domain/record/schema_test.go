package record

import (
	"errors"
	"testing"
)

func TestSchema_NumberOfColumns(t *testing.T) {
	schema := newTestSchema(t)
	if got := schema.NumberOfColumns(); got != 2 {
		t.Errorf("expected 2 columns, got %d", got)
	}
}

func TestSchema_GetColumn(t *testing.T) {
	schema := newTestSchema(t)
	col, err := schema.GetColumn("diagnosis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Name != "diagnosis" {
		t.Errorf("expected column name 'diagnosis', got %q", col.Name)
	}
	if col.Sort != "date_of_diagnosis" {
		t.Errorf("expected sort field 'date_of_diagnosis', got %q", col.Sort)
	}
}

func TestSchema_GetColumn_Unknown(t *testing.T) {
	schema := newTestSchema(t)
	_, err := schema.GetColumn("microbiology")
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestSchema_IsSingleton(t *testing.T) {
	schema := newTestSchema(t)
	tests := []struct {
		column string
		want   bool
	}{
		{"demographics", true},
		{"diagnosis", false},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, err := schema.IsSingleton(tt.column)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsSingleton(%q) = %v, want %v", tt.column, got, tt.want)
			}
		})
	}
}

func TestNewSchema_RejectsDuplicates(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
	}{
		{
			"duplicate column",
			[]Column{{Name: "diagnosis"}, {Name: "diagnosis"}},
		},
		{
			"duplicate field",
			[]Column{{
				Name: "diagnosis",
				Fields: []Field{
					{Name: "condition", Type: FieldString},
					{Name: "condition", Type: FieldString},
				},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSchema(tt.columns); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSchema_ColumnsIsACopy(t *testing.T) {
	schema := newTestSchema(t)
	cols := schema.Columns()
	cols[0].Name = "mangled"
	if _, err := schema.GetColumn("demographics"); err != nil {
		t.Errorf("mutating the returned slice leaked into the schema: %v", err)
	}
}
