package metadata

import "strings"

// Common name suffixes kept apart from the family name.
var nameSuffixes = map[string]bool{
	"jr":   true,
	"jr.":  true,
	"sr":   true,
	"sr.":  true,
	"ii":   true,
	"iii":  true,
	"iv":   true,
	"phd":  true,
	"ph.d": true,
	"md":   true,
	"m.d":  true,
}

// ParseName splits a literal human name into family, given and suffix parts.
//
// Handles "Given Family", "Family, Given" and trailing suffixes
// (Jr, Sr, II, III, IV, PhD, MD). A single token becomes the family name.
//
// Known limitations:
// - Multi-part surnames (von Neumann, van der Waals) split incorrectly
// - Middle names are included in the given name
func ParseName(literal string) Author {
	name := strings.Join(strings.Fields(literal), " ")
	if name == "" {
		return Author{}
	}

	var suffix string
	// "Family, Given" or "Given Family, Jr."
	if before, after, ok := strings.Cut(name, ","); ok {
		before = strings.TrimSpace(before)
		after = strings.TrimSpace(after)
		if nameSuffixes[strings.ToLower(after)] {
			name, suffix = before, after
		} else if after != "" {
			a := Author{Family: before, Given: after}
			if fields := strings.Fields(after); len(fields) > 1 && nameSuffixes[strings.ToLower(fields[len(fields)-1])] {
				a.Given = strings.Join(fields[:len(fields)-1], " ")
				a.Suffix = fields[len(fields)-1]
			}
			return a
		} else {
			name = before
		}
	}

	parts := strings.Fields(name)
	if suffix == "" && len(parts) > 2 && nameSuffixes[strings.ToLower(parts[len(parts)-1])] {
		suffix = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}

	if len(parts) == 1 {
		return Author{Family: parts[0], Suffix: suffix}
	}
	return Author{
		Family: parts[len(parts)-1],
		Given:  strings.Join(parts[:len(parts)-1], " "),
		Suffix: suffix,
	}
}

// ParseNames splits each literal name, dropping blanks.
func ParseNames(literals ...string) []Author {
	authors := make([]Author, 0, len(literals))
	for _, l := range literals {
		if a := ParseName(l); !a.IsEmpty() {
			authors = append(authors, a)
		}
	}
	return authors
}
