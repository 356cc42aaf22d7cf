package expenses

import (
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Capitalize trims s and returns it with the first letter upper-cased and the
// rest lower-cased: "fOOD court" becomes "Food court".
func Capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(s[:size]) + cases.Lower(language.Und).String(s[size:])
}

func sameCategory(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// GetCategories returns the registered category names in registration order.
func (r *Repository) GetCategories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.categories)
}

// AddCategory registers name unless a case-insensitive duplicate exists.
func (r *Repository) AddCategory(name string) error {
	return r.apply(func() change {
		if r.register(name) {
			return changedCategories
		}
		return 0
	})
}

// register adds the display form of name to the registry and reports whether
// the registry changed. Callers hold r.mu.
func (r *Repository) register(name string) bool {
	name = Capitalize(name)
	if name == "" {
		return false
	}
	if slices.ContainsFunc(r.categories, func(c string) bool { return sameCategory(c, name) }) {
		return false
	}
	r.categories = append(r.categories, name)
	return true
}

// renameRegistered replaces every case-variant of old with newName, keeping the
// position of the first variant. newName is never duplicated.
func (r *Repository) renameRegistered(old, newName string) bool {
	placed := slices.ContainsFunc(r.categories, func(c string) bool {
		return sameCategory(c, newName) && !sameCategory(c, old)
	})

	changed := false
	out := make([]string, 0, len(r.categories)+1)
	for _, c := range r.categories {
		if !sameCategory(c, old) {
			out = append(out, c)
			continue
		}
		if !placed {
			out = append(out, newName)
			placed = true
			if c == newName {
				continue
			}
		}
		changed = true
	}
	if !placed {
		out = append(out, newName)
		changed = true
	}
	r.categories = out
	return changed
}

func (r *Repository) unregister(name string) bool {
	n := len(r.categories)
	r.categories = slices.DeleteFunc(r.categories, func(c string) bool { return sameCategory(c, name) })
	return len(r.categories) != n
}
