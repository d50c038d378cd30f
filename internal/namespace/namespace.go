package namespace

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	pebblestore "github.com/redbasin/basin/internal/storage/pebble"
)

// Meta holds namespace metadata and per-stream limit overrides.
type Meta struct {
	Name          string `json:"name"`
	CreatedAtMs   int64  `json:"createdAtMs"`
	MaxFieldBytes int    `json:"maxFieldBytes"`
	MaxFields     int    `json:"maxFields"`
}

// Defaults returns opinionated defaults for new namespaces.
func Defaults() Meta {
	return Meta{
		MaxFieldBytes: 1 << 20, // 1 MiB
		MaxFields:     1024,
	}
}

var nsMetaPrefix = []byte("nsmeta/")

// nsMetaKey builds the metadata key for a namespace.
func nsMetaKey(ns string) []byte {
	k := make([]byte, 0, len(nsMetaPrefix)+len(ns))
	k = append(k, nsMetaPrefix...)
	k = append(k, ns...)
	return k
}

// ValidateName checks a namespace name against the configured pattern.
func ValidateName(name, pattern string) error {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return fmt.Errorf("namespace: invalid name pattern: %w", err)
	}
	if !re.MatchString(name) {
		return fmt.Errorf("namespace: name %q does not match %q", name, pattern)
	}
	return nil
}

// Ensure creates a namespace meta record if absent, returning the effective
// meta. Idempotent: returns the existing record when already present.
func Ensure(db *pebblestore.DB, name string) (Meta, error) {
	key := nsMetaKey(name)
	if b, err := db.Get(key); err == nil && len(b) > 0 {
		var m Meta
		if err := json.Unmarshal(b, &m); err == nil {
			return m, nil
		}
		// fallthrough to rewrite if corrupted
	}
	m := Defaults()
	m.Name = name
	m.CreatedAtMs = time.Now().UnixMilli()
	raw, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if err := db.Set(key, raw); err != nil {
		return Meta{}, err
	}
	return m, nil
}
