package record

import (
	"context"
	"fmt"
	"sort"

	"github.com/theseusyang/opal/internal/platform/rest"
)

// episodeDateFields are the episode-level scalar attributes that carry
// dates. The episode schema is fixed, unlike the column schemas.
var episodeDateFields = map[string]struct{}{
	"date_of_admission": {},
	"discharge_date":    {},
}

// Episode is the aggregate root: one patient episode, its scalar attributes,
// and one collection of items per schema column. The episode owns its items
// exclusively; an item leaves the model only through RemoveItem after a
// successful server-side delete.
type Episode struct {
	client *rest.Client
	schema *Schema

	id    *int64
	attrs map[string]any

	singles map[string]*Item
	lists   map[string][]*Item
}

// NewEpisode hydrates an episode from a raw server payload. Scalar episode
// attributes are copied (dates parsed from the wire format), then one item
// is constructed per raw sub-record under each schema column's name. A
// singleton column keeps at most one item: when the payload carries several,
// the last one wins. Repeatable columns keep the most recent record first
// when the column declares a sort field.
func NewEpisode(raw map[string]any, schema *Schema, client *rest.Client) (*Episode, error) {
	e := &Episode{
		client:  client,
		schema:  schema,
		singles: make(map[string]*Item),
		lists:   make(map[string][]*Item),
	}
	if err := e.hydrateScalars(raw); err != nil {
		return nil, fmt.Errorf("episode: %w", err)
	}
	for i := range schema.columns {
		col := &schema.columns[i]
		records, err := subRecords(raw[col.Name])
		if err != nil {
			return nil, fmt.Errorf("episode: column %q: %w", col.Name, err)
		}
		for _, r := range records {
			item, err := NewItem(r, e, col)
			if err != nil {
				return nil, fmt.Errorf("episode: %w", err)
			}
			if col.Single {
				e.singles[col.Name] = item
				continue
			}
			e.lists[col.Name] = append(e.lists[col.Name], item)
		}
		e.sortColumn(col)
	}
	return e, nil
}

// hydrateScalars replaces the episode's scalar attributes from a raw
// payload. Keys naming schema columns are skipped — those carry
// sub-records, not scalars. The new attribute set is built completely
// before assignment so a malformed payload leaves the episode untouched.
func (e *Episode) hydrateScalars(raw map[string]any) error {
	attrs := make(map[string]any)
	for k, v := range raw {
		if _, isColumn := e.schema.index[k]; isColumn {
			continue
		}
		if k == "id" {
			continue
		}
		if _, isDate := episodeDateFields[k]; isDate && v != nil {
			if d, already := v.(Date); already {
				attrs[k] = d
				continue
			}
			s, isString := v.(string)
			if !isString {
				return fmt.Errorf("field %q: expected wire date string, got %T", k, v)
			}
			d, err := ParseWireDate(s)
			if err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
			attrs[k] = d
			continue
		}
		attrs[k] = v
	}
	id, err := parseID(raw["id"])
	if err != nil {
		return err
	}
	e.id = id
	e.attrs = attrs
	return nil
}

// ID returns the server-assigned episode id, if any.
func (e *Episode) ID() (int64, bool) {
	if e.id == nil {
		return 0, false
	}
	return *e.id, true
}

// Schema returns the schema this episode was hydrated against.
func (e *Episode) Schema() *Schema { return e.schema }

// Get returns a scalar episode attribute. Date attributes yield a Date.
func (e *Episode) Get(name string) any { return e.attrs[name] }

// NumberOfItems returns the size of the named column's collection.
func (e *Episode) NumberOfItems(column string) (int, error) {
	col, err := e.schema.GetColumn(column)
	if err != nil {
		return 0, err
	}
	if col.Single {
		if e.singles[col.Name] != nil {
			return 1, nil
		}
		return 0, nil
	}
	return len(e.lists[col.Name]), nil
}

// GetItem returns the item at index within the named column's ordered
// collection. For singleton columns only index 0 is valid, and only when an
// item is present.
func (e *Episode) GetItem(column string, index int) (*Item, error) {
	col, err := e.schema.GetColumn(column)
	if err != nil {
		return nil, err
	}
	if col.Single {
		item := e.singles[col.Name]
		if item == nil || index != 0 {
			return nil, fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, column, index)
		}
		return item, nil
	}
	items := e.lists[col.Name]
	if index < 0 || index >= len(items) {
		return nil, fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, column, index)
	}
	return items[index], nil
}

// AddItem links item into the collection for its owning column, preserving
// the column's declared sort order. Item.Save calls this after a successful
// create; application code may also call it directly for items it has
// constructed.
func (e *Episode) AddItem(item *Item) {
	col := item.column
	if col.Single {
		e.singles[col.Name] = item
		return
	}
	e.lists[col.Name] = append(e.lists[col.Name], item)
	e.sortColumn(col)
}

// RemoveItem unlinks item from its column's collection by identity. It
// reports whether anything was removed; unlinking an item that is not in
// the collection is a no-op.
func (e *Episode) RemoveItem(item *Item) bool {
	col := item.column
	if col.Single {
		if e.singles[col.Name] == item {
			delete(e.singles, col.Name)
			return true
		}
		return false
	}
	items := e.lists[col.Name]
	for i, existing := range items {
		if existing == item {
			e.lists[col.Name] = append(items[:i], items[i+1:]...)
			return true
		}
	}
	return false
}

// sortColumn keeps a repeatable column ordered by its declared sort field,
// most recent value first. Items without a sort value order after those
// with one; ties keep their existing order.
func (e *Episode) sortColumn(col *Column) {
	if col.Single || col.Sort == "" {
		return
	}
	items := e.lists[col.Name]
	sort.SliceStable(items, func(i, j int) bool {
		return sortsBefore(items[i].attrs[col.Sort], items[j].attrs[col.Sort])
	})
}

func sortsBefore(a, b any) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	switch av := a.(type) {
	case Date:
		if bv, ok := b.(Date); ok {
			return av.After(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av > bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av > bv
		}
	}
	return false
}

// MakeCopy returns a plain snapshot of the episode's own scalar attributes
// (not its items), with date fields rendered in display format.
func (e *Episode) MakeCopy() map[string]any {
	out := make(map[string]any, len(e.attrs)+1)
	if e.id != nil {
		out["id"] = *e.id
	}
	for k, v := range e.attrs {
		if d, ok := v.(Date); ok {
			out[k] = d.Display()
			continue
		}
		out[k] = v
	}
	return out
}

// Save persists edited scalar attributes. Dates arrive in display format
// and are converted to the wire format before the update is issued; the
// server's response is then re-applied to the episode. The update targets
// the id carried in the edited attributes, falling back to the episode's
// own id. Conflict and failure semantics mirror Item.Save.
func (e *Episode) Save(ctx context.Context, attrs map[string]any) error {
	body := make(map[string]any, len(attrs))
	for k, v := range attrs {
		body[k] = v
	}
	for name := range episodeDateFields {
		v, ok := body[name]
		if !ok || v == nil {
			continue
		}
		wire, err := displayToWire(v)
		if err != nil {
			return fmt.Errorf("save episode: field %q: %w", name, err)
		}
		body[name] = wire
	}

	id, err := parseID(attrs["id"])
	if err != nil {
		return fmt.Errorf("save episode: %w", err)
	}
	if id == nil {
		id = e.id
	}
	if id == nil {
		return fmt.Errorf("save episode: no id")
	}

	var response map[string]any
	if err := e.client.Put(ctx, fmt.Sprintf("/episode/%d/", *id), body, &response); err != nil {
		return fmt.Errorf("save episode %d: %w", *id, err)
	}
	if err := e.hydrateScalars(response); err != nil {
		return fmt.Errorf("save episode %d: apply response: %w", *id, err)
	}
	return nil
}
