package tuner

// Worker pool limits.
const (
	// maxHashWorkers caps any hashing pool. Beyond this the parts compete
	// for disk bandwidth instead of finishing.
	maxHashWorkers = 32

	// minHashWorkers is the floor so a read can always proceed while
	// another part is being hashed.
	minHashWorkers = 2
)
