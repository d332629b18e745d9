package market

import "fmt"

// FetchError reports that every fetch attempt failed. It carries the number
// of attempts made and the error from the last one.
type FetchError struct {
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("market fetch failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DataFormatError reports that the provider returned a payload that is not a
// non-empty list of market rows. It is fatal and never retried.
type DataFormatError struct {
	Reason string
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("invalid market data format: %s", e.Reason)
}
