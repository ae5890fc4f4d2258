// Package idgen provides identifiers: content-derived application IDs and
// short random run IDs backed by nanoid.
package idgen

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix is prepended to every generated run ID.
var DefaultPrefix = "run-"

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// Generate returns a new unique ID using the default prefix.
func Generate() (string, error) {
	return GenerateWithPrefix(DefaultPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// ContentID returns the hex MD5 digest of the canonical JSON encoding of v.
// Canonical means object keys are sorted at every level, so two values that
// encode to the same JSON document always produce the same ID regardless of
// struct field order.
func ContentID(v any) (string, error) {
	canon, err := Canonical(v)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	sum := md5.Sum(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Canonical encodes v as compact JSON with object keys sorted recursively.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// Round-trip through generic values; encoding/json sorts map keys.
	// UseNumber keeps numeric literals exact instead of rounding to float64.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
