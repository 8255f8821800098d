package store

import "errors"

// ErrSectionNotFound indicates a legacy section could not be resolved. Legacy results have no
// section creation path, so the caller must surface this.
var ErrSectionNotFound = errors.New("section not found")

// ErrDuplicateSection indicates a replacement would give two sections the same name.
var ErrDuplicateSection = errors.New("duplicate section name")

// ErrStaleGeneration indicates the store was reset or reloaded after the caller captured its
// generation, so an in-flight result belongs to a previous analysis.
var ErrStaleGeneration = errors.New("stale generation")

// errSchemaMismatch marks an operation that does not apply to the loaded schema.
// It never leaves the package; update turns it into a warning.
var errSchemaMismatch = errors.New("operation does not apply to loaded schema")
