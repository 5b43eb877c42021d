package entities

import (
	"errors"
	"fmt"
)

// ErrEmptyQuestion is returned for a blank question; nothing is retrieved or cached.
var ErrEmptyQuestion = errors.New("question is empty")

// RetrievalError reports a failure of the retrieval collaborator.
// Zero results is not an error; see ChatResponse.NoContext.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// GenerationError reports a failed or malformed call to the text-generation service.
type GenerationError struct {
	StatusCode int    // HTTP status, 0 when the call never got a response
	Message    string
	Timeout    bool
	Err        error
}

func (e *GenerationError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("generation timed out: %s", e.Message)
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("generation failed with status %d (%s): %v", e.StatusCode, e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("generation failed with status %d: %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("generation failed (%s): %v", e.Message, e.Err)
	default:
		return "generation failed: " + e.Message
	}
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient: timeouts, transport
// errors, 429 and 5xx. Malformed bodies and other 4xx are not.
func (e *GenerationError) Retryable() bool {
	if e.Timeout {
		return true
	}
	switch {
	case e.StatusCode == 0:
		return e.Err != nil
	case e.StatusCode == 429:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// CacheError signals a misconfigured or broken answer cache. Not user facing.
type CacheError struct {
	Err error
}

func (e *CacheError) Error() string {
	return "answer cache: " + e.Err.Error()
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// IsRetryableGeneration reports whether err wraps a transient GenerationError.
func IsRetryableGeneration(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Retryable()
}
