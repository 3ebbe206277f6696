package stringsx

import "strings"

// Normalize trims spaces and converts a string to lower case.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsEmpty reports whether s is empty after trimming spaces.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// EscapeLike escapes the LIKE wildcards in s using backslash as the escape
// character, so s matches literally inside a `LIKE ... ESCAPE '\'` pattern.
func EscapeLike(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Contains returns a LIKE pattern matching any value that contains s.
func Contains(s string) string {
	return "%" + EscapeLike(s) + "%"
}
