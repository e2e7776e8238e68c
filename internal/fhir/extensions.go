package fhir

// ExtensionURL is the closed set of annotation kinds a transition may attach
// to a Task.
type ExtensionURL string

const (
	// ExtensionRegDownloaded marks a record downloaded for edit by a caller
	// whose scopes entitle them to act on it at its current status.
	ExtensionRegDownloaded ExtensionURL = "http://civreg.dev/specs/extension/regDownloaded"

	// ExtensionRegAssigned marks a record assigned to the caller; the weaker
	// outcome when download scopes do not apply.
	ExtensionRegAssigned ExtensionURL = "http://civreg.dev/specs/extension/regAssigned"

	// ExtensionRegLastUser records the human actor credited with the most
	// recent transition.
	ExtensionRegLastUser ExtensionURL = "http://civreg.dev/specs/extension/regLastUser"

	// ExtensionRegLastSystem records the machine client credited with the most
	// recent transition.
	ExtensionRegLastSystem ExtensionURL = "http://civreg.dev/specs/extension/regLastSystem"
)
