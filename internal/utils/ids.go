// Package utils holds small helpers shared across packages.
package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

// Alphanumeric only, so ids are safe in cookies, paths and query strings
// without escaping.
const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	browserIDSize = 32
	shortIDSize   = 12
)

// NanoID returns an id long enough to be unguessable. Browser, view and
// OAuth state ids use it.
func NanoID() string {
	return gonanoid.MustGenerate(idAlphabet, browserIDSize)
}

// ShortID is for request correlation and object keys.
func ShortID() string {
	return gonanoid.MustGenerate(idAlphabet, shortIDSize)
}
