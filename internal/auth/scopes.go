package auth

import "civreg/internal/fhir"

// Scope names issued by the auth service.
const (
	ScopeDeclare      = "declare"
	ScopeValidate     = "validate"
	ScopeRegister     = "register"
	ScopeRecordSearch = "recordsearch"
	ScopeSysAdmin     = "sysadmin"
)

// HasScope reports whether the scope set contains the given scope.
func HasScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// InScope reports whether the scope set contains any of the given scopes.
func InScope(scopes []string, any []string) bool {
	for _, scope := range any {
		if HasScope(scopes, scope) {
			return true
		}
	}
	return false
}

// DecideAnnotation selects the audit extension a download transition attaches,
// from the caller's scopes and the record's current business status. First
// match wins:
//
//  1. declare or recordsearch scope → downloaded
//  2. validate scope on a VALIDATED record → downloaded
//  3. otherwise → assigned
//
// Total by construction: callers outside the download scopes get the weaker
// assignment marker rather than a rejection.
func DecideAnnotation(scopes []string, status fhir.TaskStatus) fhir.ExtensionURL {
	if InScope(scopes, []string{ScopeDeclare, ScopeRecordSearch}) ||
		(HasScope(scopes, ScopeValidate) && status == fhir.StatusValidated) {
		return fhir.ExtensionRegDownloaded
	}
	return fhir.ExtensionRegAssigned
}
