package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotAVideo marks sources rejected by the extension filter. It is a
	// filter outcome rather than a failure.
	ErrNotAVideo = errors.New("not a video")
	// ErrStageFailed marks an external tool that exited nonzero or could not start.
	ErrStageFailed = errors.New("stage failed")
	// ErrFatalStage marks a stage failure whose output later stages require.
	ErrFatalStage = errors.New("fatal stage failure")
	// ErrPartialStage marks a failure in a best-effort stage.
	ErrPartialStage = errors.New("partial stage failure")
	// ErrDeliveryFailed marks an exhausted delivery retry budget.
	ErrDeliveryFailed = errors.New("delivery failed")

	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStageFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the short label stored in the error_kind column
// of job history.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotAVideo):
		return "not_a_video"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, ErrFatalStage):
		return "fatal_stage_failed"
	case errors.Is(err, ErrPartialStage):
		return "partial_stage_failed"
	case errors.Is(err, ErrStageFailed):
		return "stage_failed"
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
