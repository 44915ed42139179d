package batch

// RunStats tracks aggregate counters across a batch run.
type RunStats struct {
	Total     int // Entries found in the input folder.
	Filtered  int // Entries excluded by the format filter.
	Skipped   int // Survivors skipped because their output already existed.
	Processed int // Successful (or dry-run) invocations.
	Failed    int // Invocations that exited non-zero.
}

// Attempted returns how many files made it past filtering and skipping.
func (s *RunStats) Attempted() int {
	return s.Processed + s.Failed
}
