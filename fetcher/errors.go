package fetcher

import "fmt"

// FetchError indicates the retry budget for one year was exhausted.
type FetchError struct {
	Year int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch year %d: %v", e.Year, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
