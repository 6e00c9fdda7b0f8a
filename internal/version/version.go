package version

// Version is the current version of the argo-sizing build.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-sizing/internal/version.Version=1.2.3"
// The value "main" indicates a development build.
var Version = "main"

// StateSchemaVersion is the version stamped on every persisted strategy state.
// Bump the minor version when a strategy adds or renames an exported field.
const StateSchemaVersion = "1.0.0"

// GetVersion returns the current version of the build.
func GetVersion() string {
	return Version
}
