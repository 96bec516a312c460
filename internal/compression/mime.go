// Package compression decides whether a response is eligible for transparent
// gzip/deflate encoding and rewrites eligible responses.
package compression

import (
	"slices"
	"strings"
)

// defaultMimeTypes is the content-type whitelist used when none is configured.
var defaultMimeTypes = []string{
	"text/plain",
	"text/html",
	"text/xml",
	"text/css",
	"application/json",
	"application/x-javascript",
	"application/atom+xml",
	"application/xml;charset=UTF-8",
	"application/xml",
}

// Whitelist is an immutable set of content types eligible for compression.
type Whitelist struct {
	types []string
}

// DefaultWhitelist returns the built-in content-type whitelist.
func DefaultWhitelist() *Whitelist {
	return NewWhitelist(nil)
}

// NewWhitelist returns a whitelist of the given types. An empty list yields
// the default set.
func NewWhitelist(types []string) *Whitelist {
	if len(types) == 0 {
		types = defaultMimeTypes
	}
	return &Whitelist{types: slices.Clone(types)}
}

// Types returns a copy of the whitelisted content types.
func (w *Whitelist) Types() []string {
	return slices.Clone(w.types)
}

// Allows reports whether contentType equals an entry, or starts with an
// entry followed by a parameter separator (e.g. "text/plain;charset=utf-8").
func (w *Whitelist) Allows(contentType string) bool {
	if contentType == "" {
		return false
	}
	for _, t := range w.types {
		if contentType == t {
			return true
		}
	}
	for _, t := range w.types {
		if strings.HasPrefix(contentType, t+";") {
			return true
		}
	}
	return false
}
