package repository

import "errors"

// ErrVersionConflict is returned when an optimistic write lost a race with another writer.
var ErrVersionConflict = errors.New("version conflict")
