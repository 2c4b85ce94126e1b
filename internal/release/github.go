// Package release publishes versioned releases to the hosting platform.
package release

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrReleaseExists reports a release-name collision: a release for the tag
// was already published. Releases are immutable, so this is never retried or
// overwritten.
var ErrReleaseExists = errors.New("release already exists")

// ErrUnauthorized reports that the hosting platform rejected the credential.
var ErrUnauthorized = errors.New("credential rejected")

// Release identifies a created release object.
type Release struct {
	ID      int64  `json:"id"`
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// GitHubPublisher creates GitHub releases and uploads their assets using an
// explicitly passed token. The token is scoped to this component; nothing
// here reads ambient credentials.
type GitHubPublisher struct {
	owner      string
	repo       string
	token      string
	httpClient *http.Client

	// APIBase and UploadBase override the GitHub endpoints, for GitHub
	// Enterprise and for tests.
	APIBase    string
	UploadBase string
}

// NewGitHubPublisher creates a publisher for owner/repo authenticating with
// the given token.
func NewGitHubPublisher(owner, repo, token string) *GitHubPublisher {
	return &GitHubPublisher{
		owner:      owner,
		repo:       repo,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		APIBase:    "https://api.github.com",
		UploadBase: "https://uploads.github.com",
	}
}

// CreateRelease creates one release named after the tag. A 422 from GitHub
// means a release with that tag already exists and maps to ErrReleaseExists.
func (p *GitHubPublisher) CreateRelease(ctx context.Context, tag, body string) (*Release, error) {
	payload := map[string]interface{}{
		"tag_name":   tag,
		"name":       tag,
		"body":       body,
		"draft":      false,
		"prerelease": false,
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal release: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases", p.APIBase, p.owner, p.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post release: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("release %s: %w", tag, ErrReleaseExists)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("release %s: %w", tag, ErrUnauthorized)
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github API error %d: %s", resp.StatusCode, string(respBody))
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decode release response: %w", err)
	}
	return &rel, nil
}

// UploadAsset attaches a file to the release under the given name.
func (p *GitHubPublisher) UploadAsset(ctx context.Context, releaseID int64, name string, data []byte) error {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets?name=%s",
		p.UploadBase, p.owner, p.repo, releaseID, url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(req)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload asset %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("upload asset %s: %w", name, ErrUnauthorized)
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload asset %s: github API error %d: %s", name, resp.StatusCode, string(respBody))
	}
}

func (p *GitHubPublisher) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+p.token)
	req.Header.Set("Accept", "application/vnd.github+json")
}
