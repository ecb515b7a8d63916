package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"videowatch/internal/config"
	"videowatch/internal/logging"
	"videowatch/internal/services"
)

const (
	defaultMaxAttempts = 10
	defaultRetryDelay  = 5 * time.Second
	defaultCaption     = "Motion detected"
)

// Video is one upload request.
type Video struct {
	Path      string
	Caption   string
	Streaming bool
}

// Sender transmits a video to the configured channel.
type Sender interface {
	SendVideo(ctx context.Context, video Video) error
}

// DeliveryResult reports how a delivery ended.
type DeliveryResult struct {
	Artifact  string
	Attempts  int
	Delivered bool
	Err       error
}

// Option configures the Notifier.
type Option func(*Notifier)

// WithRetry overrides the attempt budget and the delay between attempts.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(n *Notifier) {
		if maxAttempts > 0 {
			n.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			n.delay = delay
		}
	}
}

// WithCaption overrides the caption attached to every upload.
func WithCaption(caption string) Option {
	return func(n *Notifier) {
		n.caption = caption
	}
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(n *Notifier) {
		n.sleeper = sleeper
	}
}

// Notifier delivers artifacts through a Sender with bounded fixed-delay retry.
type Notifier struct {
	sender      Sender
	caption     string
	maxAttempts int
	delay       time.Duration
	sleeper     func(time.Duration)
	logger      *slog.Logger
}

// New constructs a Notifier.
func New(sender Sender, logger *slog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		sender:      sender,
		caption:     defaultCaption,
		maxAttempts: defaultMaxAttempts,
		delay:       defaultRetryDelay,
		logger:      logging.NewComponentLogger(logger, "delivery"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewFromConfig constructs a Notifier using the delivery and caption settings in cfg.
func NewFromConfig(cfg *config.Config, sender Sender, logger *slog.Logger, opts ...Option) *Notifier {
	base := []Option{
		WithRetry(cfg.Delivery.MaxAttempts, cfg.RetryDelay()),
		WithCaption(cfg.Telegram.Caption),
	}
	return New(sender, logger, append(base, opts...)...)
}

// MaxAttempts returns the attempt budget.
func (n *Notifier) MaxAttempts() int {
	return n.maxAttempts
}

// Deliver sends artifact, retrying every failure until the attempt budget is
// spent. There is no wait after the final attempt. Files on disk are never
// modified. Cancelling ctx abandons the remaining attempts.
func (n *Notifier) Deliver(ctx context.Context, artifact string) DeliveryResult {
	logger := logging.WithContext(ctx, n.logger).With(logging.String("artifact", artifact))
	result := DeliveryResult{Artifact: artifact}

	if n.sender == nil {
		result.Err = services.Wrap(services.ErrDeliveryFailed, "deliver", "send", "no sender configured", nil)
		return result
	}
	if _, err := os.Stat(artifact); err != nil {
		result.Err = services.Wrap(services.ErrDeliveryFailed, "deliver", "open artifact", artifact, err)
		logging.ErrorWithContext(logger, "artifact unavailable for delivery", "delivery_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the preview was written to video_gif_dir"),
		)
		return result
	}

	video := Video{Path: artifact, Caption: n.caption, Streaming: true}
	var lastErr error
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		result.Attempts = attempt
		logger.Debug("sending to channel", logging.Int("attempt", attempt))

		err := n.sender.SendVideo(ctx, video)
		if err == nil {
			result.Delivered = true
			logger.Info("artifact delivered",
				logging.Int("attempts", attempt),
				logging.String(logging.FieldEventType, "delivery_complete"),
			)
			return result
		}
		lastErr = err
		logging.WarnWithContext(logger, "delivery attempt failed; retrying", "delivery_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", n.maxAttempts),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network connectivity and telegram credentials"),
			logging.String(logging.FieldImpact, "preview delivery delayed"),
		)

		if attempt == n.maxAttempts {
			break
		}
		if err := n.sleep(ctx, n.delay); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}

	result.Err = services.Wrap(services.ErrDeliveryFailed, "deliver", "send",
		fmt.Sprintf("failed after %d attempts", result.Attempts), lastErr)
	logging.ErrorWithContext(logger, "delivery abandoned", "delivery_failed",
		logging.Int("attempts", result.Attempts),
		logging.Error(lastErr),
		logging.String(logging.FieldErrorHint, "the preview remains in video_gif_dir; resend with videowatch test-delivery"),
	)
	return result
}

func (n *Notifier) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if n.sleeper != nil {
		n.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
