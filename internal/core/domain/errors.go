package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoTopic          = errors.New("no topic resolved")
	ErrNoPriorArtifact  = errors.New("no prior artifact of requested kind")
	ErrQualityExhausted = errors.New("revision budget spent")
	ErrNoCredential     = errors.New("missing provider credential")
	ErrImageNotFound    = errors.New("no image found")
	ErrRunNotFound      = errors.New("pipeline run not found")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
