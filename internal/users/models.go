// Package users resolves the acting identity behind a request and talks to
// the user-management service.
package users

// Role names relevant to workflow policy.
const (
	RoleFieldAgent          = "FIELD_AGENT"
	RoleRegistrationAgent   = "REGISTRATION_AGENT"
	RoleLocalRegistrar      = "LOCAL_REGISTRAR"
	RoleNationalSystemAdmin = "NATIONAL_SYSTEM_ADMIN"
)

// Actor is the closed set of identities a transition can be credited to:
// a human User or a machine System client. Exactly one variant resolves per
// request, decided by token scope before any lookup happens.
type Actor interface {
	// SubjectID is the token subject the actor was resolved from.
	SubjectID() string

	isActor()
}

// User is a human actor.
type User struct {
	ID                   string `json:"_id"`
	Username             string `json:"username"`
	Name                 string `json:"name"`
	SystemRole           string `json:"systemRole"`
	PrimaryOfficeID      string `json:"primaryOfficeId,omitempty"`
	EmailForNotification string `json:"emailForNotification,omitempty"`
	Mobile               string `json:"mobile,omitempty"`
}

func (u User) SubjectID() string { return u.ID }
func (User) isActor()            {}

// System is a machine client actor.
type System struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s System) SubjectID() string { return s.ID }
func (System) isActor()            {}

// SearchPage is one page of a paginated user search.
type SearchPage struct {
	Total   int    `json:"total"`
	Results []User `json:"results"`
}
