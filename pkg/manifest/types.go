// Package manifest describes which actors a host runs and which capability providers it starts.
package manifest

// Built-in handler names accepted in an actor entry.
const (
	HandlerEcho      = "echo"
	HandlerOperation = "operation"
)

// KnownHandlers lists every handler name a manifest may reference.
var KnownHandlers = []string{HandlerEcho, HandlerOperation}

// Manifest is the top-level host manifest document.
type Manifest struct {
	Actors    []ActorEntry    `yaml:"actors"`
	Providers []ProviderEntry `yaml:"providers"`
}

// ActorEntry binds an actor id to a built-in handler.
type ActorEntry struct {
	ID      string `yaml:"id"`
	Handler string `yaml:"handler"`
}

// ProviderEntry starts one HTTP gateway provider instance. Listen is a host:port address.
type ProviderEntry struct {
	CapabilityID string `yaml:"capability_id"`
	Binding      string `yaml:"binding"`
	Listen       string `yaml:"listen"`
}
