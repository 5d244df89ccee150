package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"ocrmill/internal/config"
	apperrors "ocrmill/internal/errors"
	"ocrmill/internal/infrastructure"
	"ocrmill/internal/metrics"
)

// DirectorySource produces the current identity directory, or nil when no
// source (remote or fallback) could be read.
type DirectorySource interface {
	Fetch(ctx context.Context) Directory
}

// Fetcher retrieves the identity directory from the configured URL,
// falling back to local candidate files on any class of failure. Fetch
// never fails outward; the failure reason is kept on a side channel.
type Fetcher struct {
	url           string
	token         string
	fallbackPaths []string
	client        *http.Client
	metrics       *metrics.Metrics
	now           func() time.Time

	mu      sync.Mutex
	lastErr error
}

// NewFetcher creates a directory fetcher from configuration
func NewFetcher(cfg config.DirectoryConfig, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		url:           cfg.URL,
		token:         cfg.Token,
		fallbackPaths: cfg.FallbackPaths,
		client:        &http.Client{Timeout: cfg.Timeout},
		metrics:       m,
		now:           time.Now,
	}
}

// LastError returns the reason the most recent Fetch degraded or failed,
// nil if the remote fetch succeeded. Diagnostic only.
func (f *Fetcher) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *Fetcher) setLastError(err error) {
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()
}

// Fetch returns the current directory, preferring the remote service and
// degrading to the first parseable local fallback file. Returns nil when
// every source fails.
func (f *Fetcher) Fetch(ctx context.Context) Directory {
	logger := infrastructure.LoggerWithContext(ctx)

	users, err := f.fetchRemote(ctx)
	if err == nil {
		f.setLastError(nil)
		f.metrics.RecordDirectoryFetch("remote")
		logger.Info("fetched remote user directory",
			slog.String("component", "directory_fetcher"),
			slog.Int("user_count", len(users)),
		)
		return users
	}

	f.setLastError(err)
	logger.Warn("remote directory fetch failed, trying local fallback",
		slog.String("component", "directory_fetcher"),
		slog.String("error", err.Error()),
		slog.String("error_type", string(apperrors.TypeOf(err))),
	)

	if users := f.loadFallback(ctx); users != nil {
		f.metrics.RecordDirectoryFetch("fallback")
		return users
	}

	f.metrics.RecordDirectoryFetch("none")
	return nil
}

// fetchRemote issues the HTTPS request and classifies every failure mode
func (f *Fetcher) fetchRemote(ctx context.Context) (Directory, error) {
	if f.url == "" {
		return nil, apperrors.NewConfigError("no directory URL configured", nil)
	}

	// Cache-defeating query parameter so intermediaries cannot serve a
	// stale users document.
	sep := "?"
	if strings.Contains(f.url, "?") {
		sep = "&"
	}
	url := fmt.Sprintf("%s%s_=%d", f.url, sep, f.now().Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to build directory request", err)
	}
	req.Header.Set("User-Agent", config.UserAgent)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Cache-Control", "no-cache")
	if f.token != "" {
		req.Header.Set("Authorization", "token "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to fetch user directory", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, apperrors.NewAuthError("directory authentication failed, check access token", nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.NewNotFoundError("user directory")
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewServerError(fmt.Sprintf("directory server returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read directory response", err)
	}

	users, err := parseDirectoryDocument(body)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// parseDirectoryDocument decodes either a bare users document or a hosting
// API envelope whose content field carries the document base64-encoded.
func parseDirectoryDocument(body []byte) (Directory, error) {
	var envelope struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.NewParsingError("invalid directory response", err)
	}

	doc := body
	if envelope.Content != "" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(envelope.Content, "\n", ""))
		if err != nil {
			return nil, apperrors.NewParsingError("invalid base64 directory content", err)
		}
		doc = decoded
	}

	var document struct {
		Users Directory `json:"users"`
	}
	if err := json.Unmarshal(doc, &document); err != nil {
		return nil, apperrors.NewParsingError("invalid users document", err)
	}
	if document.Users == nil {
		return nil, apperrors.NewParsingError("users document has no users field", nil)
	}

	return normalizeDirectory(document.Users), nil
}

// normalizeDirectory fills implicit auth types: entries keyed by
// DOMAIN\username are Windows users, everything else is a password user.
func normalizeDirectory(users Directory) Directory {
	for key, user := range users {
		if user.AuthType == "" {
			if strings.Contains(key, `\`) {
				user.AuthType = AuthTypeWindows
			} else {
				user.AuthType = AuthTypePassword
			}
		}
		if user.Role == "" {
			user.Role = RoleUser
		}
		users[key] = user
	}
	return users
}

// loadFallback reads the candidate files in priority order and returns the
// first directory that parses.
func (f *Fetcher) loadFallback(ctx context.Context) Directory {
	logger := infrastructure.LoggerWithContext(ctx)

	for _, path := range f.fallbackPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		users, err := parseDirectoryDocument(data)
		if err != nil {
			logger.Warn("skipping unparseable fallback directory file",
				slog.String("component", "directory_fetcher"),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		logger.Info("loaded user directory from local fallback",
			slog.String("component", "directory_fetcher"),
			slog.String("path", path),
			slog.Int("user_count", len(users)),
		)
		return users
	}

	logger.Warn("no usable fallback directory file found",
		slog.String("component", "directory_fetcher"),
		slog.Int("candidates", len(f.fallbackPaths)),
	)
	return nil
}
