// Package batch orchestrates candidate discovery, per-file command
// invocation, and summary reporting.
//
// A run enumerates the input folder once (non-recursively), filters the
// entries against the format filter, derives an output path per survivor,
// and invokes the configured external command with the input and output
// paths appended. Per-file invocation failures do not stop the batch unless
// fail-fast is enabled; configuration failures abort before any file is
// touched.
package batch
