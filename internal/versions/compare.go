package versions

import "github.com/Masterminds/semver/v3"

// IsNewerVersion reports whether candidate sorts strictly after current.
// Both values are compared as semantic versions when they parse, and as
// plain strings otherwise.
func IsNewerVersion(candidate, current string) bool {
	c, cErr := semver.NewVersion(candidate)
	cur, curErr := semver.NewVersion(current)
	if cErr != nil || curErr != nil {
		return candidate > current
	}
	return c.GreaterThan(cur)
}
