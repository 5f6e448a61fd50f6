package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/alchemist/internal/paths"
	"github.com/mesh-intelligence/alchemist/pkg/board"
	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// env is an isolated pair of config and data directories.
type env struct {
	configDir string
	dataDir   string
}

func setupEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	return env{
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
	}
}

// run executes the CLI in-process and returns stdout.
func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := e.runStreams(t, args...)
	return out, err
}

// runStreams executes the CLI in-process and returns stdout and stderr.
func (e env) runStreams(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "alchemist %s", strings.Join(args, " "))
	return out
}

// runJSON runs with --json and decodes stdout into v.
func (e env) runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out := e.mustRun(t, append([]string{"--json"}, args...)...)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestVersion(t *testing.T) {
	out := setupEnv(t).mustRun(t, "version")
	assert.Contains(t, out, "alchemist v"+Version)
	assert.Contains(t, out, "store schema: v2")
}

func TestInit(t *testing.T) {
	e := setupEnv(t)
	out := e.mustRun(t, "init")
	assert.Contains(t, out, "Store upgraded from v0 to v2")
	assert.FileExists(t, filepath.Join(e.dataDir, types.DefaultDBName+".db"))
	assert.FileExists(t, paths.BoardFile(e.dataDir))

	cfg, err := os.ReadFile(filepath.Join(e.configDir, paths.ConfigFileName))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "data_dir: "+e.dataDir)
	assert.Contains(t, string(cfg), "stale_time", "other keys kept")

	out = e.mustRun(t, "init")
	assert.NotContains(t, out, "upgraded", "second init applies no migrations")
}

func TestBookLifecycle(t *testing.T) {
	e := setupEnv(t)

	var created bookView
	e.runJSON(t, &created, "book", "create", "--title", "A", "--author", "B")
	require.NotZero(t, created.ID)
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))
	id := strconv.FormatInt(created.ID, 10)

	var updated bookView
	e.runJSON(t, &updated, "book", "update", id, "--content", "hello world")
	assert.Equal(t, "A", updated.Title, "unset flags keep their value")
	assert.Equal(t, "hello world", updated.Content)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	var got bookView
	e.runJSON(t, &got, "book", "get", id)
	assert.Equal(t, 2, got.WordCount)

	out := e.mustRun(t, "book", "list")
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "A")

	e.mustRun(t, "book", "delete", id)
	e.mustRun(t, "book", "delete", id)

	_, err := e.run(t, "book", "get", id)
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))

	var all []bookView
	e.runJSON(t, &all, "book", "list")
	assert.Empty(t, all)
}

func TestBookErrors(t *testing.T) {
	e := setupEnv(t)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"create without title", []string{"book", "create", "--author", "B"}, exitUserError},
		{"update absent", []string{"book", "update", "99", "--title", "X"}, exitUserError},
		{"bad id", []string{"book", "get", "abc"}, exitUserError},
		{"zero id", []string{"book", "delete", "0"}, exitUserError},
		{"missing arg", []string{"book", "get"}, exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, exitCode(err))
		})
	}
}

func TestBookEdit(t *testing.T) {
	e := setupEnv(t)
	var created bookView
	e.runJSON(t, &created, "book", "create", "--title", "Draft")
	id := strconv.FormatInt(created.ID, 10)

	var edited bookView
	e.runJSON(t, &edited, "book", "edit", id, "--content", "It began", "--append", " at dawn.", "--author", "Ana")
	assert.Equal(t, "It began at dawn.", edited.Content)
	assert.Equal(t, "Ana", edited.Author)

	_, err := e.run(t, "book", "edit", id, "--title", " ")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestCodex(t *testing.T) {
	e := setupEnv(t)
	var bk bookView
	e.runJSON(t, &bk, "book", "create", "--title", "Athanor")
	book := strconv.FormatInt(bk.ID, 10)

	e.mustRun(t, "codex", "add", "--book", book, "--category", "Characters", "--name", "Mira", "--description", "apprentice")
	e.mustRun(t, "codex", "add", "--book", book, "--category", "Locations", "--name", "Tower", "--description", "tall")
	e.mustRun(t, "codex", "add", "--category", "World Building", "--name", "Aether", "--description", "fifth element")

	var entries []types.CodexEntry
	e.runJSON(t, &entries, "codex", "list", "--book", book)
	assert.Len(t, entries, 2)

	e.runJSON(t, &entries, "codex", "list", "--global")
	require.Len(t, entries, 1)
	assert.Equal(t, "Aether", entries[0].Name)

	e.runJSON(t, &entries, "codex", "list", "--category", "Characters")
	require.Len(t, entries, 1)
	assert.Equal(t, "Mira", entries[0].Name)

	e.runJSON(t, &entries, "codex", "list", "--book", book, "--category", "Locations")
	require.Len(t, entries, 1)
	assert.Equal(t, "Tower", entries[0].Name)

	_, err := e.run(t, "codex", "add", "--category", "Spells", "--name", "x", "--description", "y")
	assert.Equal(t, exitUserError, exitCode(err))
	_, err = e.run(t, "codex", "add", "--book", "42", "--name", "x", "--description", "y")
	assert.Equal(t, exitUserError, exitCode(err))
	_, err = e.run(t, "codex", "add", "--name", "x")
	assert.ErrorIs(t, err, types.ErrValidation)

	e.mustRun(t, "codex", "delete", strconv.FormatInt(entries[0].ID, 10))
	e.runJSON(t, &entries, "codex", "list")
	assert.Len(t, entries, 2)

	out := e.mustRun(t, "codex", "categories")
	assert.Equal(t, strings.Join(types.CodexCategories, "\n")+"\n", out)
}

func TestBoard(t *testing.T) {
	e := setupEnv(t)

	var c1, c2 board.Card
	e.runJSON(t, &c1, "board", "add", "column-1", "Outline")
	e.runJSON(t, &c2, "board", "add", "column-1", "Characters")

	var b board.Board
	e.runJSON(t, &b, "board", "move", c1.ID, "column-1", "0", "column-2", "5")
	assert.Equal(t, []string{c2.ID}, b.Columns["column-1"].CardIDs)
	assert.Equal(t, []string{c1.ID}, b.Columns["column-2"].CardIDs)

	out := e.mustRun(t, "board", "show")
	assert.Contains(t, out, "In Progress (column-2)")
	assert.Contains(t, out, "0. Outline")

	_, err := e.run(t, "board", "move", c1.ID, "column-9", "0", "column-1", "0")
	assert.ErrorIs(t, err, board.ErrInvalidColumn)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = e.run(t, "board", "move", c1.ID, "column-2", "x", "column-1", "0")
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExportImport(t *testing.T) {
	src := setupEnv(t)
	var bk bookView
	src.runJSON(t, &bk, "book", "create", "--title", "Portable", "--content", "words to keep")
	src.mustRun(t, "codex", "add", "--name", "Aether", "--description", "fifth element")

	dir := filepath.Join(t.TempDir(), "backup")
	src.mustRun(t, "export", dir, "--zstd")
	assert.FileExists(t, filepath.Join(dir, "books.jsonl.zst"))

	dst := setupEnv(t)
	var res struct {
		Books, Codex, Skipped int
	}
	dst.runJSON(t, &res, "import", dir)
	assert.Equal(t, 1, res.Books)
	assert.Equal(t, 1, res.Codex)

	var got bookView
	dst.runJSON(t, &got, "book", "get", strconv.FormatInt(bk.ID, 10))
	assert.Equal(t, "words to keep", got.Content)

	dst.runJSON(t, &res, "import", dir)
	assert.Equal(t, 2, res.Skipped)
}

// writeOllamaConfig points config.yaml at url.
func writeOllamaConfig(t *testing.T, e env, url string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	cfg := "backend: sqlite\nollama:\n  base_url: " + url + "\n  timeout: 5s\n"
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, paths.ConfigFileName), []byte(cfg), 0o644))
}

func TestAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			io.WriteString(w, `{"models":[{"name":"llama3"}]}`)
		case "/api/generate":
			io.WriteString(w, "{\"response\":\" Then\",\"done\":false}\n{\"response\":\" night fell.\",\"done\":true}\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := setupEnv(t)
	writeOllamaConfig(t, e, srv.URL)

	var models []string
	e.runJSON(t, &models, "ai", "models")
	assert.Equal(t, []string{"llama3"}, models)

	var bk bookView
	e.runJSON(t, &bk, "book", "create", "--title", "Night", "--content", "The sun set.")
	id := strconv.FormatInt(bk.ID, 10)

	out := e.mustRun(t, "ai", "continue", id)
	assert.Equal(t, " Then night fell.\n", out)

	var got bookView
	e.runJSON(t, &got, "book", "get", id)
	assert.Equal(t, "The sun set. Then night fell.", got.Content)
}

func TestAI_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e := setupEnv(t)
	writeOllamaConfig(t, e, url)

	var bk bookView
	e.runJSON(t, &bk, "book", "create", "--title", "Offline", "--content", "kept")

	_, err := e.run(t, "ai", "continue", strconv.FormatInt(bk.ID, 10))
	require.Error(t, err)
	assert.Equal(t, exitSysError, exitCode(err))

	var got bookView
	e.runJSON(t, &got, "book", "get", strconv.FormatInt(bk.ID, 10))
	assert.Equal(t, "kept", got.Content, "editing state untouched")
}

func TestConfig_DefaultWritten(t *testing.T) {
	e := setupEnv(t)
	e.mustRun(t, "codex", "categories")
	data, err := os.ReadFile(filepath.Join(e.configDir, paths.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(data))
}

func TestMetricsFlag(t *testing.T) {
	e := setupEnv(t)
	var bk bookView
	e.runJSON(t, &bk, "book", "create", "--title", "Counted")

	_, stderr, err := e.runStreams(t, "--metrics", "book", "edit", strconv.FormatInt(bk.ID, 10), "--content", "one two")
	require.NoError(t, err)
	assert.Contains(t, stderr, `alchemist_query_cache_misses{query="books"}`)
	assert.Contains(t, stderr, "alchemist_autosave_writes 1")

	_, stderr, err = e.runStreams(t, "book", "list")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "alchemist_", "counters only printed with --metrics")
}
