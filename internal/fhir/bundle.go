// Package fhir models the FHIR-flavoured documents the record store speaks:
// a Bundle of mixed resources with a single Task carrying workflow state.
// Entries keep their raw JSON so untouched resources round-trip byte-for-byte.
package fhir

import (
	"encoding/json"
	"fmt"
)

// Bundle is an ordered collection of resources representing one life event.
type Bundle struct {
	ResourceType string  `json:"resourceType"`
	Type         string  `json:"type,omitempty"`
	Entries      []Entry `json:"entry"`
}

// Entry wraps one resource. Resource stays raw so resources we do not mutate
// pass through unchanged.
type Entry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource"`
}

// resourceProbe decodes just enough of an entry to identify its type.
type resourceProbe struct {
	ResourceType string `json:"resourceType"`
}

// TaskFromBundle locates the Task entry and decodes it. The returned index
// addresses the entry inside b.Entries for in-place substitution.
//
// A record without a Task cannot carry workflow state, so absence is a
// data-integrity fault for the caller to surface loudly.
func TaskFromBundle(b *Bundle) (*Task, int, error) {
	for i, entry := range b.Entries {
		var probe resourceProbe
		if err := json.Unmarshal(entry.Resource, &probe); err != nil {
			continue
		}
		if probe.ResourceType != "Task" {
			continue
		}
		var task Task
		if err := json.Unmarshal(entry.Resource, &task); err != nil {
			return nil, 0, fmt.Errorf("decode task entry: %w", err)
		}
		return &task, i, nil
	}
	return nil, 0, fmt.Errorf("bundle has no task entry")
}

// WithTaskAt returns a copy of the bundle with the entry at index i replaced
// by the given task. All other entries are shared unchanged.
func (b *Bundle) WithTaskAt(i int, task *Task) (*Bundle, error) {
	raw, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	entries := make([]Entry, len(b.Entries))
	copy(entries, b.Entries)
	entries[i] = Entry{FullURL: b.Entries[i].FullURL, Resource: raw}
	return &Bundle{
		ResourceType: b.ResourceType,
		Type:         b.Type,
		Entries:      entries,
	}, nil
}

// TaskOnlyBundle builds a minimal document-type bundle holding just the task.
// Persisting the mutated fragment instead of the whole record keeps write
// amplification down on the store side.
func TaskOnlyBundle(task *Task) (*Bundle, error) {
	raw, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "document",
		Entries:      []Entry{{Resource: raw}},
	}, nil
}
