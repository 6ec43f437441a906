package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, toolName string, args string) any {
	t.Helper()
	for _, tool := range All() {
		if tool.Name() == toolName {
			out, err := tool.Execute(context.Background(), json.RawMessage(args))
			require.NoError(t, err)
			return out
		}
	}
	t.Fatalf("no such tool %q", toolName)
	return nil
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "notes.txt", "one\ntwo\nthree\nfour\n")

	out := execute(t, "read_file", `{"path":"`+path+`"}`).(ReadFileOutput)
	assert.Equal(t, "one\ntwo\nthree\nfour", out.Content)
	assert.Equal(t, 4, out.Lines)
	assert.False(t, out.Truncated)
}

func TestReadFileWindow(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "notes.txt", "one\ntwo\nthree\nfour\n")

	out := execute(t, "read_file", `{"path":"`+path+`","offset":1,"limit":2}`).(ReadFileOutput)
	assert.Equal(t, "two\nthree", out.Content)
	assert.Equal(t, 2, out.Lines)
	assert.True(t, out.Truncated)
}

func TestReadFileMissing(t *testing.T) {
	tool := ReadFile()
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"/no/such/file"}`))
	assert.Error(t, err)
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.go", "package a\n")
	writeFixture(t, dir, "sub/b.go", "package b\n")
	writeFixture(t, dir, "sub/c.txt", "text\n")

	out := execute(t, "find_files", `{"pattern":"**/*.go","path":"`+dir+`"}`).(FindFilesOutput)
	assert.Equal(t, 2, out.Count)
	assert.Contains(t, out.Files, filepath.Join(dir, "a.go"))
	assert.Contains(t, out.Files, filepath.Join(dir, "sub", "b.go"))
}

func TestSearchFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "x.txt", "alpha\nbeta\ngamma beta\n")
	writeFixture(t, dir, "y.txt", "delta\n")

	out := execute(t, "search_files", `{"pattern":"beta","path":"`+dir+`"}`).(SearchFilesOutput)
	require.Equal(t, 2, out.Count)
	for _, m := range out.Matches {
		assert.Contains(t, m.Content, "beta")
		assert.Equal(t, filepath.Join(dir, "x.txt"), m.File)
	}
}

func TestSearchFilesMaxMatches(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "x.txt", "hit\nhit\nhit\nhit\n")

	out := execute(t, "search_files", `{"pattern":"hit","path":"`+dir+`","max_matches":2}`).(SearchFilesOutput)
	assert.Equal(t, 2, out.Count)
}

func TestSearchFilesBadPattern(t *testing.T) {
	tool := SearchFiles()
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"pattern":"["}`))
	assert.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	html := `<html><head><title>Test Page</title><style>p{color:red}</style></head>` +
		`<body><!-- hidden --><p>Hello <b>world</b></p><script>alert(1)</script></body></html>`

	text := stripHTML(html)
	assert.Contains(t, text, "Hello")
	assert.Contains(t, text, "world")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "hidden")

	assert.Equal(t, "Test Page", pageTitle(html))
}

func TestToolSchemas(t *testing.T) {
	for _, tool := range All() {
		schema := tool.Parameters()
		require.NotNil(t, schema, tool.Name())
		assert.NotEmpty(t, tool.Description(), tool.Name())
	}
}
