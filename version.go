package adnl

import "fmt"

// Library version constants.
const (
	// VersionMajor is the major version. Breaking changes increment this.
	VersionMajor = 0

	// VersionMinor is the minor version. New features increment this.
	VersionMinor = 3

	// VersionPatch is the patch version. Bug fixes increment this.
	VersionPatch = 1
)

// Version is a semantic library version.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

// CurrentVersion returns the current library version.
func CurrentVersion() Version {
	return Version{
		Major: VersionMajor,
		Minor: VersionMinor,
		Patch: VersionPatch,
	}
}

// String returns the version as a semantic version string (e.g., "0.3.1").
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Equal returns true if the versions are exactly equal.
func (v Version) Equal(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor && v.Patch == other.Patch
}

// IsNewer returns true if this version is newer than the other.
func (v Version) IsNewer(other Version) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor > other.Minor
	}
	return v.Patch > other.Patch
}

// ParseVersion parses a version string in the format "major.minor.patch".
// Returns an error if the format is invalid.
func ParseVersion(s string) (Version, error) {
	var v Version
	n, err := fmt.Sscanf(s, "%d.%d.%d", &v.Major, &v.Minor, &v.Patch)
	if err != nil {
		return v, fmt.Errorf("invalid version format %q: %w", s, err)
	}
	if n != 3 {
		return v, fmt.Errorf("invalid version format %q: expected major.minor.patch", s)
	}
	return v, nil
}
