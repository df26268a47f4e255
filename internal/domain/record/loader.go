package record

import (
	"context"
	"fmt"

	"github.com/theseusyang/opal/internal/platform/rest"
)

// Loaders fetch schema and episode payloads and hand back fully hydrated
// graphs. A transport failure surfaces as an error; no partially hydrated
// episode ever escapes.

// LoadExtractSchema fetches the extract column descriptors and builds a
// Schema from them.
func LoadExtractSchema(ctx context.Context, client *rest.Client) (*Schema, error) {
	var columns []Column
	if err := client.Get(ctx, "/schema/extract/", &columns); err != nil {
		return nil, fmt.Errorf("fetch extract schema: %w", err)
	}
	return NewSchema(columns)
}

// LoadEpisodes fetches the list schema and every episode, returning the
// hydrated episodes keyed by id.
func LoadEpisodes(ctx context.Context, client *rest.Client) (map[int64]*Episode, error) {
	var columns []Column
	if err := client.Get(ctx, "/schema/list/", &columns); err != nil {
		return nil, fmt.Errorf("fetch list schema: %w", err)
	}
	schema, err := NewSchema(columns)
	if err != nil {
		return nil, err
	}

	var raws []map[string]any
	if err := client.Get(ctx, "/episode", &raws); err != nil {
		return nil, fmt.Errorf("fetch episodes: %w", err)
	}

	episodes := make(map[int64]*Episode, len(raws))
	for _, raw := range raws {
		episode, err := NewEpisode(raw, schema, client)
		if err != nil {
			return nil, err
		}
		id, ok := episode.ID()
		if !ok {
			return nil, fmt.Errorf("episode payload missing id")
		}
		episodes[id] = episode
	}
	return episodes, nil
}

// LoadEpisode fetches the schema and one episode by id.
func LoadEpisode(ctx context.Context, client *rest.Client, id int64) (*Episode, error) {
	var columns []Column
	if err := client.Get(ctx, "/schema/", &columns); err != nil {
		return nil, fmt.Errorf("fetch schema: %w", err)
	}
	schema, err := NewSchema(columns)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := client.Get(ctx, fmt.Sprintf("/episode/%d", id), &raw); err != nil {
		return nil, fmt.Errorf("fetch episode %d: %w", id, err)
	}
	return NewEpisode(raw, schema, client)
}
