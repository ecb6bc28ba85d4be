package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseGitHubURL(t *testing.T) {
	tests := []struct {
		input string
		want  RemoteRef
	}{
		{"https://github.com/octo/demo", RemoteRef{Owner: "octo", Repo: "demo"}},
		{"github.com/octo/demo/", RemoteRef{Owner: "octo", Repo: "demo"}},
		{"https://www.github.com/octo/demo.git", RemoteRef{Owner: "octo", Repo: "demo"}},
		{"https://github.com/octo/demo/tree/dev", RemoteRef{Owner: "octo", Repo: "demo", Branch: "dev"}},
		{"https://github.com/octo/demo/tree/dev/src/utils", RemoteRef{Owner: "octo", Repo: "demo", Branch: "dev", SubPath: "src/utils"}},
		{"https://github.com/octo/demo/blob/main/a.py", RemoteRef{Owner: "octo", Repo: "demo", Branch: "main", SubPath: "a.py"}},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := parseGitHubURL(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseGitHubURLRejectsBadShapes(t *testing.T) {
	for _, input := range []string{
		"https://gitlab.com/octo/demo",
		"https://github.com/onlyowner",
		"not a url",
		"",
	} {
		_, err := parseGitHubURL(input)
		assert.ErrorIs(t, err, ErrInvalidReference, "input %q", input)
	}
}

// fakeGitHub serves the three endpoint shapes the fetcher touches.
type fakeGitHub struct {
	defaultBranch string
	files         map[string]string // path -> content, listing order not guaranteed
	order         []string
	authSeen      atomic.Value
	contentCalls  atomic.Int64
}

func (f *fakeGitHub) server(t *testing.T, owner, repo string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	repoRoot := fmt.Sprintf("/repos/%s/%s", owner, repo)

	mux.HandleFunc(repoRoot, func(w http.ResponseWriter, r *http.Request) {
		f.authSeen.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"default_branch": f.defaultBranch})
	})
	mux.HandleFunc(repoRoot+"/git/trees/", func(w http.ResponseWriter, r *http.Request) {
		entries := make([]map[string]interface{}, 0, len(f.order))
		for _, path := range f.order {
			entries = append(entries, map[string]interface{}{
				"path": path,
				"type": "blob",
				"size": len(f.files[path]),
			})
		}
		entries = append(entries, map[string]interface{}{"path": "somedir", "type": "tree", "size": 0})
		json.NewEncoder(w).Encode(map[string]interface{}{"tree": entries, "truncated": false})
	})
	mux.HandleFunc(repoRoot+"/contents/", func(w http.ResponseWriter, r *http.Request) {
		f.contentCalls.Add(1)
		path := strings.TrimPrefix(r.URL.Path, repoRoot+"/contents/")
		content, ok := f.files[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"content":  base64.StdEncoding.EncodeToString([]byte(content)),
			"encoding": "base64",
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return httptest.NewServer(mux)
}

func newTestFetcher(apiBase, token string) *githubFetcher {
	fetcher := newGitHubFetcher(token, zap.NewNop())
	fetcher.apiBase = apiBase
	return fetcher
}

func TestFetchAggregatesInListingOrder(t *testing.T) {
	fake := &fakeGitHub{
		defaultBranch: "main",
		files: map[string]string{
			"a.py":              "print(1)",
			"node_modules/c.py": "pruned",
			"b/d.ts":            "let x = 1;",
		},
		order: []string{"a.py", "node_modules/c.py", "b/d.ts"},
	}
	server := fake.server(t, "octo", "demo")
	defer server.Close()

	agg := newAggregator(UnlimitedTokens)
	fetcher := newTestFetcher(server.URL, "")
	err := fetcher.Fetch(context.Background(), RemoteRef{Owner: "octo", Repo: "demo"},
		&ProcessConfig{TokenBudget: UnlimitedTokens}, agg)
	require.NoError(t, err)

	result := agg.Result()
	assert.Equal(t, 2, result.FileCount)
	assert.Equal(t, "// File: a.py\nprint(1)\n\n// File: b/d.ts\nlet x = 1;", result.Content)
	assert.NotContains(t, result.Content, "pruned")
}

func TestFetchResolvesDefaultBranch(t *testing.T) {
	fake := &fakeGitHub{
		defaultBranch: "trunk",
		files:         map[string]string{"a.py": "x"},
		order:         []string{"a.py"},
	}
	server := fake.server(t, "octo", "demo")
	defer server.Close()

	agg := newAggregator(UnlimitedTokens)
	fetcher := newTestFetcher(server.URL, "")
	// No branch in the reference: metadata supplies it.
	err := fetcher.Fetch(context.Background(), RemoteRef{Owner: "octo", Repo: "demo"},
		&ProcessConfig{TokenBudget: UnlimitedTokens}, agg)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.Result().FileCount)
}

func TestFetchMissingRepoIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.URL, "")
	err := fetcher.Fetch(context.Background(), RemoteRef{Owner: "octo", Repo: "missing"},
		&ProcessConfig{TokenBudget: UnlimitedTokens}, newAggregator(UnlimitedTokens))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchCancelledBeforeWork(t *testing.T) {
	fake := &fakeGitHub{defaultBranch: "main", files: map[string]string{"a.py": "x"}, order: []string{"a.py"}}
	server := fake.server(t, "octo", "demo")
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := newAggregator(UnlimitedTokens)
	fetcher := newTestFetcher(server.URL, "")
	err := fetcher.Fetch(ctx, RemoteRef{Owner: "octo", Repo: "demo"},
		&ProcessConfig{TokenBudget: UnlimitedTokens}, agg)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 0, agg.Result().FileCount, "cancellation never yields partial success")
}

func TestFetchBudgetStopsFetching(t *testing.T) {
	fake := &fakeGitHub{
		defaultBranch: "main",
		files:         map[string]string{"a.py": "0123456789", "b.py": "abcdefghij"},
		order:         []string{"a.py", "b.py"},
	}
	server := fake.server(t, "octo", "demo")
	defer server.Close()

	agg := newAggregator(1)
	fetcher := newTestFetcher(server.URL, "")
	err := fetcher.Fetch(context.Background(), RemoteRef{Owner: "octo", Repo: "demo", Branch: "main"},
		&ProcessConfig{TokenBudget: 1}, agg)
	require.NoError(t, err)

	result := agg.Result()
	assert.True(t, result.Truncated)
	assert.Equal(t, 0, result.FileCount)
	assert.Equal(t, int64(1), fake.contentCalls.Load(), "fetching stops once the budget says no")
}

func TestFetchSubPathPrefix(t *testing.T) {
	fake := &fakeGitHub{
		defaultBranch: "main",
		files:         map[string]string{"sub/a.py": "in", "other/b.py": "out"},
		order:         []string{"sub/a.py", "other/b.py"},
	}
	server := fake.server(t, "octo", "demo")
	defer server.Close()

	agg := newAggregator(UnlimitedTokens)
	fetcher := newTestFetcher(server.URL, "")
	err := fetcher.Fetch(context.Background(), RemoteRef{Owner: "octo", Repo: "demo", Branch: "main", SubPath: "sub"},
		&ProcessConfig{TokenBudget: UnlimitedTokens}, agg)
	require.NoError(t, err)

	result := agg.Result()
	assert.Equal(t, 1, result.FileCount)
	assert.Contains(t, result.Content, "sub/a.py")
	assert.NotContains(t, result.Content, "other/b.py")
}

func TestFetchSizeAndExtensionFilters(t *testing.T) {
	fake := &fakeGitHub{
		defaultBranch: "main",
		files:         map[string]string{"ok.py": "fine", "big.py": strings.Repeat("x", 100), "skip.ts": "nope"},
		order:         []string{"ok.py", "big.py", "skip.ts"},
	}
	server := fake.server(t, "octo", "demo")
	defer server.Close()

	agg := newAggregator(UnlimitedTokens)
	fetcher := newTestFetcher(server.URL, "")
	cfg := &ProcessConfig{
		TokenBudget:       UnlimitedTokens,
		MaxFileSize:       50,
		AllowedExtensions: parseFormats("py"),
	}
	err := fetcher.Fetch(context.Background(), RemoteRef{Owner: "octo", Repo: "demo", Branch: "main"}, cfg, agg)
	require.NoError(t, err)

	result := agg.Result()
	assert.Equal(t, 1, result.FileCount)
	assert.Contains(t, result.Content, "ok.py")
}

func TestFetchSendsBearerCredential(t *testing.T) {
	fake := &fakeGitHub{defaultBranch: "main", files: map[string]string{"a.py": "x"}, order: []string{"a.py"}}
	server := fake.server(t, "octo", "demo")
	defer server.Close()

	agg := newAggregator(UnlimitedTokens)
	fetcher := newTestFetcher(server.URL, "sekrit")
	err := fetcher.Fetch(context.Background(), RemoteRef{Owner: "octo", Repo: "demo"},
		&ProcessConfig{TokenBudget: UnlimitedTokens}, agg)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sekrit", fake.authSeen.Load())
}

func TestFetchReportsProgress(t *testing.T) {
	fake := &fakeGitHub{
		defaultBranch: "main",
		files:         map[string]string{"a.py": "x", "b.py": "y"},
		order:         []string{"a.py", "b.py"},
	}
	server := fake.server(t, "octo", "demo")
	defer server.Close()

	type tick struct{ done, total int }
	var ticks []tick
	fetcher := newTestFetcher(server.URL, "")
	fetcher.progress = func(done, total int) { ticks = append(ticks, tick{done, total}) }

	err := fetcher.Fetch(context.Background(), RemoteRef{Owner: "octo", Repo: "demo", Branch: "main"},
		&ProcessConfig{TokenBudget: UnlimitedTokens}, newAggregator(UnlimitedTokens))
	require.NoError(t, err)

	require.NotEmpty(t, ticks)
	assert.Equal(t, tick{0, 2}, ticks[0])
	assert.Equal(t, tick{2, 2}, ticks[len(ticks)-1])
}

func TestFetchSkipsFailingFile(t *testing.T) {
	fake := &fakeGitHub{
		defaultBranch: "main",
		files:         map[string]string{"good.py": "kept"},
		order:         []string{"missing.py", "good.py"}, // missing.py 404s on fetch
	}
	server := fake.server(t, "octo", "demo")
	defer server.Close()

	agg := newAggregator(UnlimitedTokens)
	fetcher := newTestFetcher(server.URL, "")
	err := fetcher.Fetch(context.Background(), RemoteRef{Owner: "octo", Repo: "demo", Branch: "main"},
		&ProcessConfig{TokenBudget: UnlimitedTokens}, agg)
	require.NoError(t, err)

	result := agg.Result()
	assert.Equal(t, 1, result.FileCount)
	assert.Contains(t, result.Content, "good.py")
}
