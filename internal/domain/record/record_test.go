package record

import (
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/theseusyang/opal/internal/opaltest"
	"github.com/theseusyang/opal/internal/platform/rest"
)

// Fixtures shared across the package tests: a schema with a singleton
// demographics column and a repeatable diagnosis column, plus one episode
// payload as the server would send it.

func testColumns() []Column {
	return []Column{
		{
			Name:   "demographics",
			Single: true,
			Fields: []Field{
				{Name: "name", Type: FieldString},
				{Name: "date_of_birth", Type: FieldDate},
			},
		},
		{
			Name: "diagnosis",
			Sort: "date_of_diagnosis",
			Fields: []Field{
				{Name: "date_of_diagnosis", Type: FieldDate},
				{Name: "condition", Type: FieldString},
				{Name: "provisional", Type: FieldBoolean},
			},
		},
	}
}

func testEpisodeData() map[string]any {
	return map[string]any{
		"id":                float64(123),
		"date_of_admission": "2013-11-19",
		"active":            true,
		"discharge_date":    nil,
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
				"provisional":       true,
				"date_of_diagnosis": "2007-04-20",
			},
			map[string]any{
				"id":                float64(103),
				"condition":         "Malaria",
				"provisional":       false,
				"date_of_diagnosis": "2006-03-19",
			},
		},
	}
}

func newTestSchema(t *testing.T) *Schema {
	t.Helper()
	schema, err := NewSchema(testColumns())
	if err != nil {
		t.Fatalf("failed to build schema: %v", err)
	}
	return schema
}

// newTestEpisode hydrates the fixture episode without a server; good enough
// for everything except Save/Destroy.
func newTestEpisode(t *testing.T) *Episode {
	t.Helper()
	episode, err := NewEpisode(testEpisodeData(), newTestSchema(t), nil)
	if err != nil {
		t.Fatalf("failed to hydrate episode: %v", err)
	}
	return episode
}

// newServerEpisode hydrates the fixture episode against an in-memory OPAL
// server so persistence calls have somewhere to go.
func newServerEpisode(t *testing.T) (*Episode, *opaltest.Server) {
	t.Helper()
	fake := opaltest.New()
	ts := httptest.NewServer(fake.Handler())
	t.Cleanup(ts.Close)

	client := rest.NewClient(rest.Options{
		BaseURL: ts.URL,
		Logger:  zerolog.Nop(),
	})
	episode, err := NewEpisode(testEpisodeData(), newTestSchema(t), client)
	if err != nil {
		t.Fatalf("failed to hydrate episode: %v", err)
	}
	return episode, fake
}

func mustGetItem(t *testing.T, e *Episode, column string, index int) *Item {
	t.Helper()
	item, err := e.GetItem(column, index)
	if err != nil {
		t.Fatalf("GetItem(%q, %d): %v", column, index, err)
	}
	return item
}

func mustCount(t *testing.T, e *Episode, column string) int {
	t.Helper()
	n, err := e.NumberOfItems(column)
	if err != nil {
		t.Fatalf("NumberOfItems(%q): %v", column, err)
	}
	return n
}
