// Package transitions implements the record state machine. Each transition
// takes the current bundle plus the acting identity and produces the next
// revision; it never talks to the network.
package transitions

import (
	"fmt"
	"time"

	"civreg/internal/fhir"
	"civreg/internal/users"
)

// Downloaded is the pair of representations a download transition produces.
// Full goes back to the caller; TaskOnly is what gets persisted and indexed.
// Both agree on status and extension content, only payload breadth differs.
type Downloaded struct {
	Full     *fhir.Bundle
	TaskOnly *fhir.Bundle
}

// ToDownloaded produces the next revision of a record after a download or
// assignment. The annotation decides which marker is attached; the actor is
// stamped as the last user or system depending on its variant. Deterministic
// for fixed inputs apart from the injected timestamp.
func ToDownloaded(record *fhir.Bundle, actor users.Actor, annotation fhir.ExtensionURL, now time.Time) (*Downloaded, error) {
	task, idx, err := fhir.TaskFromBundle(record)
	if err != nil {
		return nil, fmt.Errorf("download transition: %w", err)
	}
	if _, ok := fhir.StatusFromTask(task); !ok {
		return nil, fmt.Errorf("download transition: task %s has no business status", task.ID)
	}

	next := *task
	next.Extensions = make([]fhir.Extension, len(task.Extensions))
	copy(next.Extensions, task.Extensions)

	// The download/assignment marker is exclusive: attaching one kind retires
	// the other, while every unrelated audit extension is preserved.
	switch annotation {
	case fhir.ExtensionRegDownloaded:
		next.RemoveExtension(fhir.ExtensionRegAssigned)
	case fhir.ExtensionRegAssigned:
		next.RemoveExtension(fhir.ExtensionRegDownloaded)
	default:
		return nil, fmt.Errorf("download transition: unsupported annotation %q", annotation)
	}
	next.SetExtension(fhir.Extension{
		URL:           annotation,
		ValueDateTime: now.UTC().Format(time.RFC3339),
	})

	switch a := actor.(type) {
	case users.User:
		next.SetExtension(fhir.Extension{
			URL:            fhir.ExtensionRegLastUser,
			ValueReference: &fhir.Reference{Reference: "Practitioner/" + a.SubjectID()},
		})
	case users.System:
		next.SetExtension(fhir.Extension{
			URL:         fhir.ExtensionRegLastSystem,
			ValueString: a.SubjectID(),
		})
	default:
		return nil, fmt.Errorf("download transition: unknown actor variant %T", actor)
	}
	next.Touch(now)

	full, err := record.WithTaskAt(idx, &next)
	if err != nil {
		return nil, fmt.Errorf("download transition: %w", err)
	}
	taskOnly, err := fhir.TaskOnlyBundle(&next)
	if err != nil {
		return nil, fmt.Errorf("download transition: %w", err)
	}
	return &Downloaded{Full: full, TaskOnly: taskOnly}, nil
}
