package transitions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civreg/internal/fhir"
	"civreg/internal/users"
)

var fixedNow = time.Date(2024, 5, 8, 14, 25, 33, 0, time.UTC)

func recordWithStatus(t *testing.T, status string, extensions ...fhir.Extension) *fhir.Bundle {
	t.Helper()

	task := &fhir.Task{
		ResourceType: "Task",
		ID:           "task-1",
		Status:       "ready",
		BusinessStatus: &fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: "http://civreg.dev/specs/reg-status", Code: status}},
		},
		Extensions: extensions,
	}
	rawTask, err := json.Marshal(task)
	require.NoError(t, err)

	return &fhir.Bundle{
		ResourceType: "Bundle",
		Type:         "document",
		Entries: []fhir.Entry{
			{Resource: json.RawMessage(`{"resourceType":"Composition","id":"comp-1"}`)},
			{Resource: rawTask},
			{Resource: json.RawMessage(`{"resourceType":"Patient","id":"patient-1"}`)},
		},
	}
}

func fieldAgent() users.User {
	return users.User{ID: "user-1", Username: "j.campbell", SystemRole: users.RoleFieldAgent}
}

func TestToDownloadedStampsUserActor(t *testing.T) {
	record := recordWithStatus(t, "DECLARED")

	got, err := ToDownloaded(record, fieldAgent(), fhir.ExtensionRegDownloaded, fixedNow)
	require.NoError(t, err)

	task, _, err := fhir.TaskFromBundle(got.Full)
	require.NoError(t, err)

	marker, found := task.FindExtension(fhir.ExtensionRegDownloaded)
	require.True(t, found)
	assert.Equal(t, "2024-05-08T14:25:33Z", marker.ValueDateTime)

	lastUser, found := task.FindExtension(fhir.ExtensionRegLastUser)
	require.True(t, found)
	require.NotNil(t, lastUser.ValueReference)
	assert.Equal(t, "Practitioner/user-1", lastUser.ValueReference.Reference)

	_, found = task.FindExtension(fhir.ExtensionRegLastSystem)
	assert.False(t, found, "user transitions must not stamp a system marker")
}

func TestToDownloadedStampsSystemActor(t *testing.T) {
	record := recordWithStatus(t, "DECLARED")
	system := users.System{ID: "sys-1", Name: "national-search", Type: "RECORD_SEARCH"}

	got, err := ToDownloaded(record, system, fhir.ExtensionRegDownloaded, fixedNow)
	require.NoError(t, err)

	task, _, err := fhir.TaskFromBundle(got.Full)
	require.NoError(t, err)

	lastSystem, found := task.FindExtension(fhir.ExtensionRegLastSystem)
	require.True(t, found)
	assert.Equal(t, "sys-1", lastSystem.ValueString)

	_, found = task.FindExtension(fhir.ExtensionRegLastUser)
	assert.False(t, found, "system transitions must not stamp a user marker")
}

func TestToDownloadedMarkerIsExclusive(t *testing.T) {
	record := recordWithStatus(t, "DECLARED", fhir.Extension{
		URL:           fhir.ExtensionRegDownloaded,
		ValueDateTime: "2024-01-01T00:00:00Z",
	})

	got, err := ToDownloaded(record, fieldAgent(), fhir.ExtensionRegAssigned, fixedNow)
	require.NoError(t, err)

	task, _, err := fhir.TaskFromBundle(got.Full)
	require.NoError(t, err)

	_, found := task.FindExtension(fhir.ExtensionRegDownloaded)
	assert.False(t, found, "assignment must retire the download marker")
	_, found = task.FindExtension(fhir.ExtensionRegAssigned)
	assert.True(t, found)
}

func TestToDownloadedPreservesUnrelatedExtensions(t *testing.T) {
	prior := fhir.Extension{URL: "http://civreg.dev/specs/extension/contact-relationship", ValueString: "MOTHER"}
	record := recordWithStatus(t, "DECLARED", prior)

	got, err := ToDownloaded(record, fieldAgent(), fhir.ExtensionRegDownloaded, fixedNow)
	require.NoError(t, err)

	task, _, err := fhir.TaskFromBundle(got.Full)
	require.NoError(t, err)
	ext, found := task.FindExtension(prior.URL)
	require.True(t, found)
	assert.Equal(t, "MOTHER", ext.ValueString)
}

func TestToDownloadedRepresentationsAgree(t *testing.T) {
	record := recordWithStatus(t, "VALIDATED")

	got, err := ToDownloaded(record, fieldAgent(), fhir.ExtensionRegDownloaded, fixedNow)
	require.NoError(t, err)

	// Full keeps every original resource plus the updated task, no others.
	require.Len(t, got.Full.Entries, 3)
	// TaskOnly carries nothing but the task.
	require.Len(t, got.TaskOnly.Entries, 1)

	fullTask, _, err := fhir.TaskFromBundle(got.Full)
	require.NoError(t, err)
	onlyTask, _, err := fhir.TaskFromBundle(got.TaskOnly)
	require.NoError(t, err)

	assert.Equal(t, fullTask, onlyTask, "both representations must agree on status and extensions")
}

func TestToDownloadedIsDeterministic(t *testing.T) {
	a, err := ToDownloaded(recordWithStatus(t, "DECLARED"), fieldAgent(), fhir.ExtensionRegDownloaded, fixedNow)
	require.NoError(t, err)
	b, err := ToDownloaded(recordWithStatus(t, "DECLARED"), fieldAgent(), fhir.ExtensionRegDownloaded, fixedNow)
	require.NoError(t, err)

	rawA, err := json.Marshal(a.Full)
	require.NoError(t, err)
	rawB, err := json.Marshal(b.Full)
	require.NoError(t, err)
	assert.Equal(t, rawA, rawB)
}

func TestToDownloadedFailsWithoutTask(t *testing.T) {
	bundle := &fhir.Bundle{
		ResourceType: "Bundle",
		Entries:      []fhir.Entry{{Resource: json.RawMessage(`{"resourceType":"Patient"}`)}},
	}

	_, err := ToDownloaded(bundle, fieldAgent(), fhir.ExtensionRegDownloaded, fixedNow)
	assert.ErrorContains(t, err, "no task")
}

func TestToDownloadedFailsWithoutStatus(t *testing.T) {
	record := recordWithStatus(t, "DECLARED")
	// Blank out the status coding on the raw task entry.
	record.Entries[1].Resource = json.RawMessage(`{"resourceType":"Task","id":"task-1"}`)

	_, err := ToDownloaded(record, fieldAgent(), fhir.ExtensionRegDownloaded, fixedNow)
	assert.ErrorContains(t, err, "business status")
}
