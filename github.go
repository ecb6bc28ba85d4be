package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	githubAPIBase     = "https://api.github.com"
	githubAPIVersion  = "2022-11-28"
	githubAccept      = "application/vnd.github+json"
	githubUserAgent   = "promptpack"
	githubHTTPTimeout = 30 * time.Second

	// Pacing between content fetches. Unauthenticated clients get a
	// longer stride to stay under the public rate limits; a credential
	// raises the ceiling enough that a token gesture suffices.
	fetchDelayAnonymous = 250 * time.Millisecond
	fetchDelayWithToken = 50 * time.Millisecond
)

// RemoteRef identifies a repository location parsed out of a user-supplied
// GitHub URL. Owner and Repo are always non-empty; Branch and SubPath are
// optional refinements.
type RemoteRef struct {
	Owner   string
	Repo    string
	Branch  string
	SubPath string
}

var githubURLPattern = regexp.MustCompile(
	`^(?:https?://)?(?:www\.)?github\.com/` +
		`([A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?)/` + // owner
		`([A-Za-z0-9._-]+?)` + // repo
		`(?:\.git)?` +
		`(?:/(?:tree|blob)/([^/]+)(?:/(.*?))?)?/?$`) // optional branch + subpath

// parseGitHubURL extracts a RemoteRef from a repository URL, or
// ErrInvalidReference when the shape doesn't match.
func parseGitHubURL(raw string) (RemoteRef, error) {
	match := githubURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return RemoteRef{}, fmt.Errorf("%w: %q", ErrInvalidReference, raw)
	}
	return RemoteRef{
		Owner:   match[1],
		Repo:    match[2],
		Branch:  match[3],
		SubPath: strings.Trim(match[4], "/"),
	}, nil
}

// isGitHubURL reports whether input parses as a GitHub repository reference.
func isGitHubURL(input string) bool {
	_, err := parseGitHubURL(input)
	return err == nil
}

// githubFetcher aggregates a repository through the GitHub REST API in two
// phases: one recursive tree listing, then one contents request per surviving
// file. The split is what makes progress observable and cancellation cheap.
type githubFetcher struct {
	client  *http.Client
	apiBase string
	token   string
	logger  *zap.Logger

	// progress, when set, receives (processed, total) after each file.
	progress func(done, total int)
}

func newGitHubFetcher(token string, logger *zap.Logger) *githubFetcher {
	return &githubFetcher{
		client:  &http.Client{Timeout: githubHTTPTimeout},
		apiBase: githubAPIBase,
		token:   token,
		logger:  logger,
	}
}

// API payload shapes, trimmed to the fields actually read.

type githubRepoMeta struct {
	DefaultBranch string `json:"default_branch"`
}

type githubTreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type githubTree struct {
	Tree      []githubTreeEntry `json:"tree"`
	Truncated bool              `json:"truncated"`
}

type githubBlob struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Fetch runs the whole remote aggregation for ref into agg. Per-file fetch
// failures are logged and skipped; the run-level outcomes are ErrNotFound,
// ErrCancelled, or a generic fetch error.
func (f *githubFetcher) Fetch(ctx context.Context, ref RemoteRef, cfg *ProcessConfig, agg *Aggregator) error {
	branch := ref.Branch
	if branch == "" {
		resolved, err := f.defaultBranch(ctx, ref)
		if err != nil {
			return err
		}
		branch = resolved
	}

	files, err := f.listFiles(ctx, ref, branch, cfg)
	if err != nil {
		return err
	}
	total := len(files)
	f.reportProgress(0, total)

	delay := fetchDelayAnonymous
	if f.token != "" {
		delay = fetchDelayWithToken
	}

	for index, entry := range files {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		if index > 0 {
			select {
			case <-ctx.Done():
				return ErrCancelled
			case <-time.After(delay):
			}
		}

		content, fetchErr := f.fetchContent(ctx, ref, branch, entry.Path)
		if fetchErr != nil {
			if ctx.Err() != nil {
				return ErrCancelled
			}
			f.logger.Warn("file fetch failed, skipping",
				zap.String("path", entry.Path), zap.Error(fetchErr))
			f.reportProgress(index+1, total)
			continue
		}

		accepted := agg.Add(Fragment{Path: entry.Path, Content: transformContent(content, cfg)})
		f.reportProgress(index+1, total)
		if !accepted {
			break
		}
	}
	return nil
}

// defaultBranch resolves the branch to aggregate when the reference doesn't
// name one.
func (f *githubFetcher) defaultBranch(ctx context.Context, ref RemoteRef) (string, error) {
	var meta githubRepoMeta
	endpoint := fmt.Sprintf("%s/repos/%s/%s", f.apiBase, url.PathEscape(ref.Owner), url.PathEscape(ref.Repo))
	if err := f.getJSON(ctx, endpoint, &meta); err != nil {
		return "", err
	}
	if meta.DefaultBranch == "" {
		return "", fmt.Errorf("repository %s/%s reports no default branch", ref.Owner, ref.Repo)
	}
	return meta.DefaultBranch, nil
}

// listFiles fetches the full recursive tree once and applies every local
// filter up front, so the per-file fetch phase touches only files that can
// still make it into the artifact.
func (f *githubFetcher) listFiles(ctx context.Context, ref RemoteRef, branch string, cfg *ProcessConfig) ([]githubTreeEntry, error) {
	var tree githubTree
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		f.apiBase, url.PathEscape(ref.Owner), url.PathEscape(ref.Repo), url.PathEscape(branch))
	if err := f.getJSON(ctx, endpoint, &tree); err != nil {
		return nil, err
	}
	if tree.Truncated {
		f.logger.Warn("remote tree listing truncated by the API; aggregation covers the returned entries only",
			zap.String("repo", ref.Owner+"/"+ref.Repo))
	}

	matcher := newSkipMatcher(cfg.SkipPatterns)
	prefix := ref.SubPath
	if prefix != "" {
		prefix += "/"
	}

	var files []githubTreeEntry
	for _, entry := range tree.Tree {
		if entry.Type != "blob" {
			continue
		}
		if prefix != "" && !strings.HasPrefix(entry.Path, prefix) && entry.Path != ref.SubPath {
			continue
		}
		if matcher.Excludes(entry.Path) {
			continue
		}
		if !cfg.allowsFile(entry.Path, entry.Size) {
			continue
		}
		files = append(files, entry)
	}
	return files, nil
}

// fetchContent retrieves one blob via the contents endpoint and decodes its
// base64 transport encoding.
func (f *githubFetcher) fetchContent(ctx context.Context, ref RemoteRef, branch, path string) (string, error) {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		f.apiBase, url.PathEscape(ref.Owner), url.PathEscape(ref.Repo),
		strings.Join(segments, "/"), url.QueryEscape(branch))

	var blob githubBlob
	if err := f.getJSON(ctx, endpoint, &blob); err != nil {
		return "", err
	}
	if blob.Encoding != "" && blob.Encoding != "base64" {
		return "", fmt.Errorf("unsupported content encoding %q for %s", blob.Encoding, path)
	}
	// The API wraps base64 payloads with newlines.
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode content for %s: %w", path, err)
	}
	return string(decoded), nil
}

// getJSON performs one authenticated GET and decodes the JSON body. 404 maps
// to ErrNotFound, a dead context to ErrCancelled, anything else non-2xx to a
// generic fetch error.
func (f *githubFetcher) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	request.Header.Set("User-Agent", githubUserAgent)
	request.Header.Set("Accept", githubAccept)
	request.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	if f.token != "" {
		request.Header.Set("Authorization", "Bearer "+f.token)
	}

	response, err := f.client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return fmt.Errorf("github request: %w", err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case response.StatusCode < 200 || response.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(response.Body, 4*1024))
		return fmt.Errorf("github api: unexpected status %d for %s: %s",
			response.StatusCode, endpoint, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(response.Body).Decode(out)
}

func (f *githubFetcher) reportProgress(done, total int) {
	if f.progress != nil {
		f.progress(done, total)
	}
}
