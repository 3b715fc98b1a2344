package build

import (
	"strings"
)

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// ValidateArtifactName checks that name can be used as a bare file name in the
// working directory on every platform the artifact may be copied to.
func ValidateArtifactName(name string) error {
	invalid := func(msg string) error {
		return &ValidationError{Field: "artifact name", Message: msg}
	}

	if strings.TrimSpace(name) == "" {
		return invalid("must not be empty")
	}
	if name == "." || name == ".." {
		return invalid("must not be a directory reference")
	}
	if strings.ContainsAny(name, `/\`) {
		return invalid("must be a file name without directory components")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return invalid("must not contain control characters")
		}
		if strings.ContainsRune(`<>:"|?*`, r) {
			return invalid("must not contain any of <>:\"|?*")
		}
	}
	if strings.HasSuffix(name, ".") || strings.HasSuffix(name, " ") {
		return invalid("must not end with a dot or space")
	}

	stem := name
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	if _, ok := reservedNames[strings.ToUpper(stem)]; ok {
		return invalid("is a reserved device name")
	}
	return nil
}
