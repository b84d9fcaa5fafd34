package object

import (
	"strings"
	"unicode/utf8"
)

// ValidName reports whether name can be written as a tree entry.
// Names must be valid UTF-8 and must not contain characters that
// would break the line-oriented tree body.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if !utf8.ValidString(name) {
		return false
	}
	return !strings.ContainsAny(name, "/\n\x00")
}
