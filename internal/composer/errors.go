package composer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFetch marks a collection or context load failure scoped to one notebook.
	ErrFetch = errors.New("fetch failed")
	// ErrStaleAggregation marks an aggregation pass superseded by a newer snapshot.
	ErrStaleAggregation  = errors.New("aggregation result superseded")
	ErrContextBuild      = errors.New("context build failed")
	ErrNoContentSelected = errors.New("no content selected")
	ErrMissingProfile    = errors.New("episode profile is required")
	ErrMissingName       = errors.New("episode name is required")
	ErrGenerationSubmit  = errors.New("podcast generation submit failed")

	ErrSessionClosed        = errors.New("session closed")
	ErrInvalidMode          = errors.New("invalid inclusion mode")
	ErrSubmissionInProgress = errors.New("submission already in progress")
)

// wrap tags err with marker so callers can classify it with errors.Is while
// keeping the notebook and operation in the message.
func wrap(marker error, notebookId, detail string, err error) error {
	parts := make([]string, 0, 2)
	if notebookId = strings.TrimSpace(notebookId); notebookId != "" {
		parts = append(parts, "notebook "+notebookId)
	}
	if detail = strings.TrimSpace(detail); detail != "" {
		parts = append(parts, detail)
	}
	if len(parts) == 0 {
		if err != nil {
			return fmt.Errorf("%w: %w", marker, err)
		}
		return marker
	}
	msg := strings.Join(parts, ": ")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, msg, err)
	}
	return fmt.Errorf("%w: %s", marker, msg)
}
