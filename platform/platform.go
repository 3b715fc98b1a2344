package platform

import (
	"fmt"
	"sort"
	"strings"
)

// Platform defines the set of mobile targets accepted by the build service.
type Platform string

const (
	Android Platform = "android"
	IOS     Platform = "ios"
)

// BuildType is a platform-dependent build flavor.
type BuildType string

const (
	Debug       BuildType = "debug"
	Release     BuildType = "release"
	Development BuildType = "development"
	AdHoc       BuildType = "ad-hoc"
	AppStore    BuildType = "app-store"
	Enterprise  BuildType = "enterprise"
)

var buildTypes = map[Platform][]BuildType{
	Android: {Debug, Release},
	IOS:     {Development, AdHoc, AppStore, Enterprise},
}

// Supported returns the full list of supported platforms.
func Supported() []Platform {
	return []Platform{Android, IOS}
}

// IsValid reports whether p matches a supported platform value.
func (p Platform) IsValid() bool {
	switch p {
	case Android, IOS:
		return true
	default:
		return false
	}
}

// String returns the platform as string.
func (p Platform) String() string {
	return string(p)
}

// BuildTypes returns the build types the platform accepts, or nil for an unknown platform.
func (p Platform) BuildTypes() []BuildType {
	return append([]BuildType(nil), buildTypes[p]...)
}

// Supports reports whether t is a valid build type for p.
func (p Platform) Supports(t BuildType) bool {
	for _, candidate := range buildTypes[p] {
		if candidate == t {
			return true
		}
	}
	return false
}

// ArtifactExtension is the file extension of the package the platform produces.
func (p Platform) ArtifactExtension() string {
	switch p {
	case Android:
		return ".apk"
	case IOS:
		return ".ipa"
	default:
		return ""
	}
}

func (t BuildType) String() string {
	return string(t)
}

// Parse returns the canonical Platform for the provided string or an error if unsupported.
func Parse(value string) (Platform, error) {
	if p := Normalize(value); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("unsupported platform %q (supported: %s)", value, strings.Join(supportedStrings(), ", "))
}

// MustParse is like Parse but panics on error.
func MustParse(value string) Platform {
	p, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return p
}

// Normalize maps a possibly differently cased string into a canonical Platform. Returns ""
// when the string cannot be normalized.
func Normalize(value string) Platform {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(Android):
		return Android
	case string(IOS):
		return IOS
	default:
		return ""
	}
}

// ParseBuildType validates value against the build types accepted by p.
func ParseBuildType(p Platform, value string) (BuildType, error) {
	if !p.IsValid() {
		return "", fmt.Errorf("unsupported platform %q (supported: %s)", p, strings.Join(supportedStrings(), ", "))
	}
	t := BuildType(strings.ToLower(strings.TrimSpace(value)))
	if p.Supports(t) {
		return t, nil
	}
	allowed := make([]string, 0, len(buildTypes[p]))
	for _, candidate := range buildTypes[p] {
		allowed = append(allowed, candidate.String())
	}
	return "", fmt.Errorf("build type %q is not available for %s (supported: %s)", value, p, strings.Join(allowed, ", "))
}

func supportedStrings() []string {
	all := Supported()
	out := make([]string, 0, len(all))
	for _, p := range all {
		out = append(out, p.String())
	}
	sort.Strings(out)
	return out
}
