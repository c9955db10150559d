// Package photostore keeps candidate photos in a GitHub repository through
// the contents API and serves them from raw.githubusercontent.com.
package photostore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"class-election/pkg/logger"

	"golang.org/x/oauth2"
)

const (
	DefaultAPIBaseURL = "https://api.github.com"
	DefaultRawBaseURL = "https://raw.githubusercontent.com"
)

// Config describes the target repository. Repo is "owner/name".
type Config struct {
	Token      string
	Repo       string
	Branch     string
	APIBaseURL string
	RawBaseURL string
	Timeout    time.Duration
}

type GitHubStore struct {
	cfg    Config
	client *http.Client
	logger *logger.Logger
}

// NewGitHubStore returns a store; without a token or repo it reports
// IsConfigured false and refuses every call.
func NewGitHubStore(cfg Config, log *logger.Logger) *GitHubStore {
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.RawBaseURL == "" {
		cfg.RawBaseURL = DefaultRawBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	s := &GitHubStore{cfg: cfg, logger: log}
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		s.client = oauth2.NewClient(context.Background(), src)
		s.client.Timeout = cfg.Timeout
	}
	return s
}

func (s *GitHubStore) IsConfigured() bool {
	return s.client != nil && s.cfg.Repo != ""
}

// RawURL is the public URL of a file on the configured branch.
func (s *GitHubStore) RawURL(path string) string {
	return fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(s.cfg.RawBaseURL, "/"), s.cfg.Repo, s.cfg.Branch, path)
}

type contentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

type contentsResponse struct {
	SHA string `json:"sha"`
}

// Upload creates the file or replaces it when it already exists.
func (s *GitHubStore) Upload(ctx context.Context, path string, content []byte, message string) (string, error) {
	if !s.IsConfigured() {
		return "", fmt.Errorf("github photo storage is not configured")
	}

	sha, err := s.fileSHA(ctx, path)
	if err != nil {
		return "", err
	}

	body := contentsRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
		Branch:  s.cfg.Branch,
	}
	resp, err := s.do(ctx, http.MethodPut, path, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", s.statusError("upload", path, resp)
	}

	s.logger.WithFields(map[string]interface{}{
		"path":    path,
		"replace": sha != "",
		"bytes":   len(content),
	}).Info("Uploaded photo to GitHub")
	return s.RawURL(path), nil
}

// Delete removes the file. A file that does not exist is not an error.
func (s *GitHubStore) Delete(ctx context.Context, path string, message string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("github photo storage is not configured")
	}

	sha, err := s.fileSHA(ctx, path)
	if err != nil {
		return err
	}
	if sha == "" {
		s.logger.WithField("path", path).Warn("Photo already absent from GitHub")
		return nil
	}

	resp, err := s.do(ctx, http.MethodDelete, path, contentsRequest{Message: message, SHA: sha, Branch: s.cfg.Branch})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.statusError("delete", path, resp)
	}
	return nil
}

// fileSHA returns the blob sha of an existing file, or "" when absent.
func (s *GitHubStore) fileSHA(ctx context.Context, path string) (string, error) {
	resp, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out contentsResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("decode github contents response: %w", err)
		}
		return out.SHA, nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", s.statusError("lookup", path, resp)
	}
}

func (s *GitHubStore) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	endpoint := s.contentsURL(path)
	if method == http.MethodGet {
		endpoint += "?ref=" + url.QueryEscape(s.cfg.Branch)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode github request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithField("path", path).Error("GitHub request failed")
		return nil, fmt.Errorf("github %s %s: %w", method, path, err)
	}
	return resp, nil
}

func (s *GitHubStore) contentsURL(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/repos/%s/contents/%s", strings.TrimRight(s.cfg.APIBaseURL, "/"), s.cfg.Repo, strings.Join(segments, "/"))
}

func (s *GitHubStore) statusError(op, path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	s.logger.WithFields(map[string]interface{}{
		"path":        path,
		"status_code": resp.StatusCode,
		"response":    string(body),
	}).Error("GitHub " + op + " failed")
	return fmt.Errorf("github %s %s: status %d", op, path, resp.StatusCode)
}
