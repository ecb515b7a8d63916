package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"videowatch/internal/config"
	"videowatch/internal/delivery"
)

// CheckTelegram verifies that the bot token is accepted by the Bot API.
// It uses a 15-second timeout and a single getMe call (no retries).
func CheckTelegram(ctx context.Context, tg config.Telegram) Result {
	const name = "Telegram"

	if strings.TrimSpace(tg.BotToken) == "" {
		return Result{Name: name, Detail: "missing bot token"}
	}
	if strings.TrimSpace(tg.ChatID) == "" {
		return Result{Name: name, Detail: "missing chat id"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	username, err := delivery.NewTelegramSender(tg).Verify(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeTelegramError(checkCtx, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("authorized as @%s", username)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeTelegramError(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "getMe timed out (Bot API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "getMe timed out (Bot API unreachable)"
	}
	return err.Error()
}
