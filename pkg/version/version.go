// Package version reports the running version and checks for newer releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Version is the build version, overridden at link time with
// -ldflags "-X github.com/chatbridge-io/linerelay/pkg/version.Version=v1.2.3".
var Version = "dev"

var releasesURL = "https://api.github.com/repos/chatbridge-io/linerelay/releases/latest"

// Current returns the running version.
func Current() string {
	return Version
}

// FetchLatest looks up the latest published release tag. The lookup is
// best-effort; callers should treat an error as "unknown".
func FetchLatest(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release lookup returned %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("parse release response: %w", err)
	}

	return release.TagName, nil
}
