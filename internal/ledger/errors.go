// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import "errors"

// ErrNotFound is returned by Lookup when no entry exists for a dedup key
// or any of its aliases.
var ErrNotFound = errors.New("ledger: entry not found")

// ErrStageConflict is returned when Advance finds the entry in a stage
// other than the expected predecessor, or in a terminal status. It
// indicates concurrent or duplicate stage execution; the caller must
// re-read the entry and decide, never retry blindly.
var ErrStageConflict = errors.New("ledger: stage conflict")
