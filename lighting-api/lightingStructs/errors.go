package lightingStructs

import "fmt"

// NetworkError reports a request that failed or returned a non-success status.
type NetworkError struct {
	Url        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request %s failed with status %d", e.Url, e.StatusCode)
	}
	return fmt.Sprintf("request %s failed: %v", e.Url, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DataError reports a payload that could not be decoded or a field that could
// not be interpreted. Index is -1 when the error is not tied to one element.
type DataError struct {
	Source string
	Index  int
	Err    error
}

func (e *DataError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("malformed %s entry %d: %v", e.Source, e.Index, e.Err)
	}
	return fmt.Sprintf("malformed %s: %v", e.Source, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }
