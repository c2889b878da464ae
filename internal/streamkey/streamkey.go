// Package streamkey derives stream identifiers from multi-part aggregate
// identities.
package streamkey

import "strings"

// New returns a string key derived from the given identity parts.
//
// The encoding is deterministic and collision-free: distinct part lists
// always produce distinct keys, because the separator is escaped wherever it
// appears within a part.
func New(parts ...string) string {
	if len(parts) == 0 {
		panic("identity must have at least one part")
	}

	var w strings.Builder

	for _, part := range parts {
		if len(part) == 0 {
			panic("identity part must not be empty")
		}

		if w.Len() > 0 {
			w.WriteByte('/')
		}

		for _, r := range part {
			if r == '/' || r == '\\' {
				w.WriteByte('\\')
			}

			w.WriteRune(r)
		}
	}

	return w.String()
}
