package main

import "errors"

// Run-level outcomes. Per-file problems are logged and skipped; only these
// sentinels (plus a caller-imposed timeout) abort a whole run.
var (
	// ErrInvalidReference means the supplied URL does not look like a
	// repository reference the fetcher understands. The user has to fix
	// their input; retrying won't help.
	ErrInvalidReference = errors.New("invalid repository reference")

	// ErrNotFound means the remote reported the repository (or branch)
	// absent or inaccessible.
	ErrNotFound = errors.New("repository not found")

	// ErrCancelled means the user aborted mid-run. It is an outcome, not
	// a failure: nothing partial is ever returned alongside it.
	ErrCancelled = errors.New("operation cancelled")
)
