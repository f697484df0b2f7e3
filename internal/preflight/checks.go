package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"plenum/internal/client"
	"plenum/internal/config"
)

// CheckAPI verifies that the backend API is reachable and answering the
// channel status endpoint. Single attempt, 5-second timeout.
func CheckAPI(ctx context.Context, cfg *config.Config) Result {
	const name = "Backend API"

	base := strings.TrimSpace(cfg.API.BaseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	api, err := client.NewWithBase(base, 5*time.Second)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", base, err)}
	}

	channels, err := api.ChannelStatus(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeAPIError(base, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d channels)", base, len(channels))}
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable. A missing directory is created first; plenum owns
// its cache and log trees.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, err)}
	}
	info, err := os.Stat(path)
	if err != nil {
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

// CheckNtfyTopic validates the configured ntfy topic URL without sending
// a notification. Use "plenum test-notify" for a real delivery.
func CheckNtfyTopic(topic string) Result {
	const name = "Ntfy topic"

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	parsed, err := url.Parse(topic)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url (%v)", err)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: scheme must be http or https)", topic)}
	}
	if strings.Trim(parsed.Path, "/") == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: missing topic path)", topic)}
	}
	return Result{Name: name, Passed: true, Detail: topic}
}

// summarizeAPIError produces a human-readable summary for API check failures.
func summarizeAPIError(base string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s (timed out)", base)
	}
	if client.IsUnavailable(err) {
		return fmt.Sprintf("%s (unreachable: %v)", base, err)
	}
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("%s (HTTP %d)", base, statusErr.Code)
	}
	return fmt.Sprintf("%s (error: %v)", base, err)
}
