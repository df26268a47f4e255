package record

import (
	"context"
	"fmt"
)

// Item is one clinical record instance within a column of an episode. Its
// attribute set is shaped by the owning column's field list; date fields are
// parsed from the wire format at construction so the in-memory value is
// always a Date. The episode reference is a back-relation only — the episode
// owns the item's lifetime, and the item uses the reference to ask its owner
// to link or unlink it after a persistence call settles.
type Item struct {
	episode *Episode
	column  *Column
	id      *int64
	attrs   map[string]any
}

// NewItem constructs an item from raw attributes. Fields declared as dates
// are parsed from the wire format; other fields are copied verbatim. A raw
// payload without an id yields an unsaved item whose first Save issues a
// create.
func NewItem(raw map[string]any, episode *Episode, column *Column) (*Item, error) {
	it := &Item{episode: episode, column: column}
	if err := it.hydrate(raw); err != nil {
		return nil, fmt.Errorf("item %s: %w", column.Name, err)
	}
	return it, nil
}

// hydrate replaces the item's state from a raw record. It builds the new
// attribute set completely before assigning it, so a malformed payload
// leaves the item untouched.
func (it *Item) hydrate(raw map[string]any) error {
	attrs := make(map[string]any, len(it.column.Fields))
	for _, f := range it.column.Fields {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			attrs[f.Name] = nil
			continue
		}
		if f.Type == FieldDate {
			if d, already := v.(Date); already {
				attrs[f.Name] = d
				continue
			}
			s, isString := v.(string)
			if !isString {
				return fmt.Errorf("field %q: expected wire date string, got %T", f.Name, v)
			}
			d, err := ParseWireDate(s)
			if err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
			attrs[f.Name] = d
			continue
		}
		attrs[f.Name] = v
	}
	id, err := parseID(raw["id"])
	if err != nil {
		return err
	}
	it.id = id
	it.attrs = attrs
	return nil
}

// ID returns the server-assigned id, if the item has been persisted.
func (it *Item) ID() (int64, bool) {
	if it.id == nil {
		return 0, false
	}
	return *it.id, true
}

// ColumnName returns the name of the column this item belongs to.
func (it *Item) ColumnName() string { return it.column.Name }

// Get returns the current value of a declared field. Date fields yield a
// Date, absent values nil.
func (it *Item) Get(field string) any { return it.attrs[field] }

// MakeCopy returns a plain snapshot of the item's attributes with date
// fields rendered in display format, suitable for editing and for diffing
// edits against.
func (it *Item) MakeCopy() map[string]any {
	out := make(map[string]any, len(it.attrs)+1)
	if it.id != nil {
		out["id"] = *it.id
	}
	for k, v := range it.attrs {
		if d, ok := v.(Date); ok {
			out[k] = d.Display()
			continue
		}
		out[k] = v
	}
	return out
}

// wireBody converts edited attributes back to the wire format: date fields
// arrive in display format and leave as YYYY-MM-DD, everything else passes
// through unchanged.
func (it *Item) wireBody(attrs map[string]any) (map[string]any, error) {
	body := make(map[string]any, len(attrs))
	for k, v := range attrs {
		body[k] = v
	}
	for _, f := range it.column.Fields {
		if f.Type != FieldDate {
			continue
		}
		v, ok := body[f.Name]
		if !ok || v == nil {
			continue
		}
		wire, err := displayToWire(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		body[f.Name] = wire
	}
	return body, nil
}

// Save persists edited attributes. An item with an id is updated in place;
// an item without one is created and then linked into the owning episode's
// collection. Either way the server's response is re-applied to the item,
// re-parsing any date fields. A 409 from the server surfaces as
// rest.ErrConflict and the in-memory attributes stay at their pre-save
// values, as they do on any other failure.
func (it *Item) Save(ctx context.Context, attrs map[string]any) error {
	body, err := it.wireBody(attrs)
	if err != nil {
		return fmt.Errorf("save %s: %w", it.column.Name, err)
	}

	var response map[string]any
	if it.id != nil {
		path := fmt.Sprintf("/%s/%d/", it.column.Name, *it.id)
		if err := it.episode.client.Put(ctx, path, body, &response); err != nil {
			return fmt.Errorf("save %s: %w", it.column.Name, err)
		}
		if err := it.hydrate(response); err != nil {
			return fmt.Errorf("save %s: apply response: %w", it.column.Name, err)
		}
		return nil
	}

	path := fmt.Sprintf("/%s/", it.column.Name)
	if err := it.episode.client.Post(ctx, path, body, &response); err != nil {
		return fmt.Errorf("create %s: %w", it.column.Name, err)
	}
	if err := it.hydrate(response); err != nil {
		return fmt.Errorf("create %s: apply response: %w", it.column.Name, err)
	}
	it.episode.AddItem(it)
	return nil
}

// Destroy deletes the item on the server and, on success, unlinks it from
// the owning episode. On failure the item remains in its collection.
func (it *Item) Destroy(ctx context.Context) error {
	if it.id == nil {
		return fmt.Errorf("destroy %s: item has not been saved", it.column.Name)
	}
	path := fmt.Sprintf("/%s/%d/", it.column.Name, *it.id)
	if err := it.episode.client.Delete(ctx, path); err != nil {
		return fmt.Errorf("delete %s: %w", it.column.Name, err)
	}
	it.episode.RemoveItem(it)
	return nil
}
