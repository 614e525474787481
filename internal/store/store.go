package store

// CoefficientStore defines persistence for optimized Mermin coefficients.
// Entries are keyed by the ket they were optimized for (e.g. "0101").
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return ErrNotFound if the key doesn't exist (for Load/Delete)
//   - Return *ValidationError for malformed keys or entries
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type CoefficientStore interface {
	// Save stores the entry under key, replacing any previous entry.
	Save(key string, entry *Entry) error

	// Load retrieves the entry stored under key.
	// Returns ErrNotFound if no entry exists.
	Load(key string) (*Entry, error)

	// List returns metadata for every stored entry, ordered by key.
	List() ([]EntryInfo, error)

	// Delete removes the entry stored under key.
	// Returns ErrNotFound if no entry exists.
	Delete(key string) error
}

// ErrNotFound is returned when a requested entry does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing cache entry or trace.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	if e.Key != "" {
		return "entry not found: " + e.Key
	}
	return "entry not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
