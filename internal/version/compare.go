package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-sizing/pkg/errors"
)

// CheckVersionCompatibility checks if the schema version the engine writes and
// the version stamped on a stored state are compatible.
// Returns nil if compatible, a coded error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
//
// Examples:
//   - Engine 1.2.0, Stored 1.2.0 -> OK (exact match)
//   - Engine 1.2.1, Stored 1.2.0 -> OK (patch differs)
//   - Engine 1.3.0, Stored 1.2.0 -> ERROR (minor differs)
//   - Engine 2.0.0, Stored 1.2.0 -> ERROR (major differs)
//   - Engine main, Stored 1.2.0 -> OK (dev build, skip check)
func CheckVersionCompatibility(engineVersion, storedVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	storedVersion = strings.TrimPrefix(storedVersion, "v")

	if engineVersion == "main" || storedVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version '%s'", engineVersion)
	}

	storedSemver, err := semver.NewVersion(storedVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid stored version '%s'", storedVersion)
	}

	if engineSemver.Major() != storedSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch, "major version mismatch: engine is %d.x.x but state was written by %d.x.x",
			engineSemver.Major(), storedSemver.Major())
	}

	if engineSemver.Minor() != storedSemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch, "minor version mismatch: engine is %d.%d.x but state was written by %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			storedSemver.Major(), storedSemver.Minor())
	}

	return nil
}
