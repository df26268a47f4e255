package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/theseusyang/opal/internal/domain/record"
)

func extractSchema(t *testing.T) *record.Schema {
	t.Helper()
	schema, err := record.NewSchema([]record.Column{
		{
			Name:   "demographics",
			Single: true,
			Fields: []record.Field{
				{Name: "name", Type: record.FieldString},
				{Name: "date_of_birth", Type: record.FieldDate},
			},
		},
		{
			Name: "diagnosis",
			Sort: "date_of_diagnosis",
			Fields: []record.Field{
				{Name: "date_of_diagnosis", Type: record.FieldDate},
				{Name: "condition", Type: record.FieldString},
			},
		},
	})
	if err != nil {
		t.Fatalf("failed to build schema: %v", err)
	}
	return schema
}

func extractEpisodes(t *testing.T, schema *record.Schema) map[int64]*record.Episode {
	t.Helper()
	payloads := []map[string]any{
		{
			"id": float64(123),
			"demographics": []any{
				map[string]any{
					"id":            float64(101),
					"name":          "John Smith",
					"date_of_birth": "1980-07-31",
				},
			},
			"diagnosis": []any{
				map[string]any{
					"id":                float64(102),
					"condition":         "Dengue",
					"date_of_diagnosis": "2007-04-20",
				},
				map[string]any{
					"id":                float64(103),
					"condition":         "Malaria",
					"date_of_diagnosis": "2006-03-19",
				},
			},
		},
		{
			"id": float64(124),
			"demographics": []any{
				map[string]any{
					"id":   float64(105),
					"name": "Jane Doe",
				},
			},
		},
	}

	episodes := make(map[int64]*record.Episode, len(payloads))
	for _, raw := range payloads {
		episode, err := record.NewEpisode(raw, schema, nil)
		if err != nil {
			t.Fatalf("failed to hydrate episode: %v", err)
		}
		id, _ := episode.ID()
		episodes[id] = episode
	}
	return episodes
}

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteWorkbook(t *testing.T) {
	schema := extractSchema(t)
	data, err := WriteWorkbook(schema, extractEpisodes(t, schema))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := openWorkbook(t, data)

	sheets := f.GetSheetList()
	want := map[string]bool{"demographics": true, "diagnosis": true}
	for _, name := range sheets {
		if !want[name] {
			t.Errorf("unexpected sheet %q", name)
		}
		delete(want, name)
	}
	for name := range want {
		t.Errorf("missing sheet %q", name)
	}

	rows, err := f.GetRows("demographics")
	if err != nil {
		t.Fatalf("failed to read demographics sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected a header and 2 rows, got %d", len(rows))
	}
	wantHeader := []string{"episode_id", "name", "date_of_birth"}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], h)
		}
	}
	if rows[1][0] != "123" || rows[1][1] != "John Smith" || rows[1][2] != "31/07/1980" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	// Episode 124's demographics has no date of birth, so its row ends early.
	if rows[2][0] != "124" || rows[2][1] != "Jane Doe" {
		t.Errorf("unexpected second row: %v", rows[2])
	}
}

func TestWriteWorkbook_DiagnosisOrder(t *testing.T) {
	schema := extractSchema(t)
	data, err := WriteWorkbook(schema, extractEpisodes(t, schema))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := openWorkbook(t, data)
	rows, err := f.GetRows("diagnosis")
	if err != nil {
		t.Fatalf("failed to read diagnosis sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected a header and 2 rows, got %d", len(rows))
	}
	// Most recent diagnosis first, per the column's sort field.
	if rows[1][1] != "20/04/2007" || rows[1][2] != "Dengue" {
		t.Errorf("unexpected first diagnosis row: %v", rows[1])
	}
	if rows[2][1] != "19/03/2006" || rows[2][2] != "Malaria" {
		t.Errorf("unexpected second diagnosis row: %v", rows[2])
	}
}

func TestWriteWorkbook_Empty(t *testing.T) {
	schema := extractSchema(t)
	data, err := WriteWorkbook(schema, map[int64]*record.Episode{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := openWorkbook(t, data)
	rows, err := f.GetRows("demographics")
	if err != nil {
		t.Fatalf("failed to read demographics sheet: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected only the header row, got %d rows", len(rows))
	}
}
