package query

import (
	"fmt"
	"strings"
)

// Key identifies a cached query, e.g. "books" or "books/3".
type Key string

// KeyOf joins parts with "/" into a Key.
func KeyOf(parts ...any) Key {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return Key(strings.Join(s, "/"))
}

// Root returns the first segment of k. It labels metrics.
func (k Key) Root() string {
	root, _, _ := strings.Cut(string(k), "/")
	return root
}
