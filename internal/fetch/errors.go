package fetch

import "fmt"

// FetchError is returned after retry exhaustion and carries the last
// underlying cause. Resolvers treat it as a non-fatal miss for the current
// candidate URL.
type FetchError struct {
	URL      string
	Attempts int
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}
