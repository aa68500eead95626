// Package refdata fetches per-run snapshots of identifier lists from the
// accounting system and validates candidate field values against them.
package refdata

import (
	"context"
	"fmt"
	"sort"
)

// List is an ordered reference list: one field-name -> value map per entity
// instance. Lists are immutable for the duration of a run.
type List []map[string]string

// Fetcher is the query surface of the gateway client used to load lists.
type Fetcher interface {
	GetEntity(ctx context.Context, objectType string, fields []string) ([]map[string]string, error)
}

// Snapshot holds the reference lists one builder run needs, keyed by the
// friendly object type they were fetched as. Read-only after Load.
type Snapshot struct {
	lists map[string]List
}

// Load fetches one list per entry of specs (object type -> identifying
// field). A fetch failure propagates unmodified; the run is expected to
// abort.
func Load(ctx context.Context, f Fetcher, specs map[string]string) (*Snapshot, error) {
	types := make([]string, 0, len(specs))
	for objectType := range specs {
		types = append(types, objectType)
	}
	sort.Strings(types)

	lists := make(map[string]List, len(specs))
	for _, objectType := range types {
		rows, err := f.GetEntity(ctx, objectType, []string{specs[objectType]})
		if err != nil {
			return nil, fmt.Errorf("fetch %s reference list: %w", objectType, err)
		}
		lists[objectType] = rows
	}
	return &Snapshot{lists: lists}, nil
}

// List returns the fetched list for the object type, or nil.
func (s *Snapshot) List(objectType string) List {
	if s == nil {
		return nil
	}
	return s.lists[objectType]
}

// Contains reports whether any entry in the list carries value under field.
func Contains(list List, field, value string) bool {
	for _, entry := range list {
		if entry[field] == value {
			return true
		}
	}
	return false
}
