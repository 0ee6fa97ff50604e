// Package template implements best-effort placeholder substitution for
// message personalization.
package template

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Render substitutes every {{key}} token in tmpl with the row value for that
// key, matched case-insensitively. The "name" token falls back to "there"
// when the row has no name. Tokens for keys absent from row render as empty
// strings; this is a best-effort templating step and never errors.
//
// Keys in reserved are role columns already consumed for routing; they are
// skipped during indexing so the canonical values seeded by the caller (name,
// number, email) win over the raw columns of the same name.
func Render(tmpl string, row map[string]string, reserved map[string]struct{}) string {
	idx := make(map[string]string, len(row))
	for k, v := range row {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, skip := reserved[key]; skip {
			continue
		}
		idx[key] = v
	}

	return tokenRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		sub := tokenRe.FindStringSubmatch(m)
		key := strings.ToLower(strings.TrimSpace(sub[1]))
		if v, ok := idx[key]; ok && v != "" {
			return v
		}
		if key == "name" {
			return "there"
		}
		return ""
	})
}

// ReservedKeys builds the reserved set from the given role column keys,
// ignoring empties.
func ReservedKeys(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
