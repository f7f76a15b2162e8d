package common

import (
	"fmt"
	"strings"
)

// Must be manually updated!
// Before releasing: Verify the version number and set Prerelease to ""
// After releasing: Increase the Patch number and set Prerelease to "pre"
var version = Version{
	Major:      0,
	Minor:      3,
	Patch:      0,
	Prerelease: "pre",
}

// Set via -ldflags. Example:
//
//	go install -ldflags "-X github.com/drand/dlproof/common.COMMIT=`git rev-parse HEAD`"
var (
	COMMIT    = ""
	BUILDDATE = ""
)

func GetAppVersion() Version {
	return version
}

type Version struct {
	Major      uint32
	Minor      uint32
	Patch      uint32
	Prerelease string
}

// IsCompatible returns true when both versions share the same major and minor
// numbers. Proof files carry the version that wrote them and are only read
// back by a compatible one.
func (v Version) IsCompatible(verRcv Version) bool {
	return v.Major == verRcv.Major && v.Minor == verRcv.Minor
}

func (v Version) String() string {
	if v.Prerelease == "" {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d.%d-%s", v.Major, v.Minor, v.Patch, v.Prerelease)
}

// ParseVersion reads a version in the form written by String.
func ParseVersion(s string) (Version, error) {
	var v Version
	core := s
	if i := strings.IndexByte(s, '-'); i >= 0 {
		core, v.Prerelease = s[:i], s[i+1:]
	}
	var rest string
	n, _ := fmt.Sscanf(core+" end", "%d.%d.%d %s", &v.Major, &v.Minor, &v.Patch, &rest)
	if n != 4 || rest != "end" {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	return v, nil
}
