package fhir

import "time"

// TaskStatus is the business status a record's Task carries through the
// declare → validate → register workflow.
type TaskStatus string

const (
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDeclared   TaskStatus = "DECLARED"
	StatusValidated  TaskStatus = "VALIDATED"
	StatusRegistered TaskStatus = "REGISTERED"
	StatusCertified  TaskStatus = "CERTIFIED"
	StatusRejected   TaskStatus = "REJECTED"
	StatusArchived   TaskStatus = "ARCHIVED"
)

// Task is the workflow-status sub-resource of a record bundle. Extensions are
// append-only audit annotations: transitions add or replace a marker but never
// strip history.
type Task struct {
	ResourceType   string           `json:"resourceType"`
	ID             string           `json:"id,omitempty"`
	Status         string           `json:"status,omitempty"`
	BusinessStatus *CodeableConcept `json:"businessStatus,omitempty"`
	Focus          *Reference       `json:"focus,omitempty"`
	Extensions     []Extension      `json:"extension,omitempty"`
	LastModified   string           `json:"lastModified,omitempty"`
}

// CodeableConcept holds one or more codings for a FHIR concept field.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Coding is a system/code pair.
type Coding struct {
	System string `json:"system,omitempty"`
	Code   string `json:"code,omitempty"`
}

// Reference points at another resource by relative URL, e.g. "User/abc".
type Reference struct {
	Reference string `json:"reference"`
}

// Extension is a typed annotation on a Task.
type Extension struct {
	URL            ExtensionURL `json:"url"`
	ValueString    string       `json:"valueString,omitempty"`
	ValueDateTime  string       `json:"valueDateTime,omitempty"`
	ValueReference *Reference   `json:"valueReference,omitempty"`
}

// StatusFromTask derives the business status from the task's businessStatus
// codings. The second return is false when no coding resolves; callers treat
// that as a data-integrity fault, not a user error.
func StatusFromTask(task *Task) (TaskStatus, bool) {
	if task == nil || task.BusinessStatus == nil {
		return "", false
	}
	for _, coding := range task.BusinessStatus.Coding {
		if coding.Code != "" {
			return TaskStatus(coding.Code), true
		}
	}
	return "", false
}

// SetExtension replaces the extension with the same URL, or appends when no
// prior one exists. Other extensions are untouched.
func (t *Task) SetExtension(ext Extension) {
	for i, existing := range t.Extensions {
		if existing.URL == ext.URL {
			t.Extensions[i] = ext
			return
		}
	}
	t.Extensions = append(t.Extensions, ext)
}

// RemoveExtension drops every extension with the given URL. Used when a
// transition supersedes one marker kind with another, e.g. an assignment
// marker replacing a previous download marker.
func (t *Task) RemoveExtension(url ExtensionURL) {
	kept := t.Extensions[:0]
	for _, ext := range t.Extensions {
		if ext.URL != url {
			kept = append(kept, ext)
		}
	}
	t.Extensions = kept
}

// FindExtension returns the first extension with the given URL, if any.
func (t *Task) FindExtension(url ExtensionURL) (Extension, bool) {
	for _, ext := range t.Extensions {
		if ext.URL == url {
			return ext, true
		}
	}
	return Extension{}, false
}

// Touch stamps the task's lastModified field.
func (t *Task) Touch(now time.Time) {
	t.LastModified = now.UTC().Format(time.RFC3339)
}
