package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factboard/api/internal/app"
	"factboard/api/internal/store"
)

func startServer(t *testing.T) (string, *store.RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rs, err := store.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	srv := httptest.NewServer(app.NewHTTPServer(app.New(rs, nil, nil), "*", nil, nil).Handler())
	t.Cleanup(srv.Close)
	return srv.URL, rs
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FACTBOARD_SERVER", "")

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "factboard dev\n", out)
}

func TestCategoriesLocal(t *testing.T) {
	out, _, err := run(t, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "technology")
	assert.Contains(t, out, "#7074b7")
}

func TestListEmptyBoard(t *testing.T) {
	url, _ := startServer(t)
	out, _, err := run(t, "--server", url, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "category: all")
	assert.Contains(t, out, "No facts for this category yet.")
}

func TestSubmitListAndVote(t *testing.T) {
	url, rs := startServer(t)

	out, _, err := run(t, "--server", url, "submit",
		"--text", "Wombat droppings are cube shaped",
		"--source", "https://example.com/wombat",
		"--category", "science")
	require.NoError(t, err)
	assert.Equal(t, "created fact #1 in science\n", out)

	out, _, err = run(t, "--server", url, "vote", "1", "false", "--category", "science")
	require.NoError(t, err)
	assert.Contains(t, out, "false 1")

	out, _, err = run(t, "--server", url, "list", "-c", "science")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 [DISPUTED] Wombat droppings are cube shaped")
	assert.Contains(t, out, "science (#16a34a)")
	assert.Contains(t, out, "1 fact(s)")

	facts, err := rs.FetchFacts(context.Background(), store.FactQuery{})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, 1, facts[0].VotesFalse)
}

func TestSubmitInvalidDraft(t *testing.T) {
	url, rs := startServer(t)
	_, _, err := run(t, "--server", url, "submit",
		"--text", "Fine text",
		"--source", "example.com",
		"--category", "science")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fact not submitted")
	assert.Contains(t, err.Error(), "an http(s) source", "the command names what to correct")

	facts, err := rs.FetchFacts(context.Background(), store.FactQuery{})
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestVoteOnFactOutsideCategory(t *testing.T) {
	url, rs := startServer(t)
	_, err := rs.InsertFact(context.Background(), store.NewFact{Text: "a", Source: "https://a.example", Category: "news"})
	require.NoError(t, err)

	_, _, err = run(t, "--server", url, "vote", "1", "interesting", "--category", "health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not on the")
}

func TestVoteRejectsUnknownColumn(t *testing.T) {
	_, _, err := run(t, "vote", "1", "boring")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnknownColumn)
}

func TestListReportsRetrievalProblem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, stderr, err := run(t, "--server", srv.URL, "list")
	require.Error(t, err)
	assert.Contains(t, stderr, retrievalProblem)
}

func TestServerFromConfigFile(t *testing.T) {
	url, _ := startServer(t)
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("server: "+url+"\n"), 0o600))

	out, _, err := run(t, "--config", cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "category: all")
}
