package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"civreg/internal/fhir"
)

func TestDecideAnnotation(t *testing.T) {
	tests := []struct {
		name   string
		scopes []string
		status fhir.TaskStatus
		want   fhir.ExtensionURL
	}{
		{
			name:   "declare scope downloads regardless of status",
			scopes: []string{ScopeDeclare},
			status: fhir.StatusRegistered,
			want:   fhir.ExtensionRegDownloaded,
		},
		{
			name:   "recordsearch scope downloads regardless of status",
			scopes: []string{ScopeRecordSearch},
			status: fhir.StatusDeclared,
			want:   fhir.ExtensionRegDownloaded,
		},
		{
			name:   "declare wins even with other scopes present",
			scopes: []string{ScopeRegister, ScopeDeclare},
			status: fhir.StatusCertified,
			want:   fhir.ExtensionRegDownloaded,
		},
		{
			name:   "validate scope on validated record downloads",
			scopes: []string{ScopeValidate},
			status: fhir.StatusValidated,
			want:   fhir.ExtensionRegDownloaded,
		},
		{
			name:   "validate scope on declared record assigns",
			scopes: []string{ScopeValidate},
			status: fhir.StatusDeclared,
			want:   fhir.ExtensionRegAssigned,
		},
		{
			name:   "validate scope on registered record assigns",
			scopes: []string{ScopeValidate},
			status: fhir.StatusRegistered,
			want:   fhir.ExtensionRegAssigned,
		},
		{
			name:   "register scope assigns",
			scopes: []string{ScopeRegister},
			status: fhir.StatusValidated,
			want:   fhir.ExtensionRegAssigned,
		},
		{
			name:   "empty scope set assigns",
			scopes: nil,
			status: fhir.StatusDeclared,
			want:   fhir.ExtensionRegAssigned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideAnnotation(tt.scopes, tt.status)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasScope(t *testing.T) {
	scopes := []string{ScopeDeclare, ScopeValidate}

	assert.True(t, HasScope(scopes, ScopeDeclare))
	assert.False(t, HasScope(scopes, ScopeRecordSearch))
	assert.False(t, HasScope(nil, ScopeDeclare))
}

func TestInScope(t *testing.T) {
	scopes := []string{ScopeRegister}

	assert.True(t, InScope(scopes, []string{ScopeDeclare, ScopeRegister}))
	assert.False(t, InScope(scopes, []string{ScopeDeclare, ScopeRecordSearch}))
	assert.False(t, InScope(scopes, nil))
}
