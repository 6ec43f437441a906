// Package tools provides ready-made chat.Tools for common agent tasks.
// They are plain TypedTools; register them with chat.WithTools like any
// other, and under fallback their schemas feed the markup prompt.
package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/chatwire/chatwire/chat"
)

// ReadFileInput selects a file and an optional line window.
type ReadFileInput struct {
	Path   string `json:"path" jsonschema:"required,description=File path to read"`
	Offset int    `json:"offset,omitempty" jsonschema:"description=Line offset to start from (0-based)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Max lines to read (0 = all)"`
}

// ReadFileOutput is the selected window of the file.
type ReadFileOutput struct {
	Content   string `json:"content"`
	Lines     int    `json:"lines"`
	Truncated bool   `json:"truncated"`
}

// ReadFile returns a tool that reads a file, optionally windowed by line.
func ReadFile() chat.Tool {
	return chat.MustNewTool(
		"read_file",
		"Read the contents of a file. Supports reading specific line ranges.",
		func(ctx context.Context, in ReadFileInput) (ReadFileOutput, error) {
			f, err := os.Open(in.Path)
			if err != nil {
				return ReadFileOutput{}, fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			var out ReadFileOutput
			var lines []string
			scanner := bufio.NewScanner(f)
			for n := 0; scanner.Scan(); n++ {
				if n < in.Offset {
					continue
				}
				if in.Limit > 0 && len(lines) >= in.Limit {
					out.Truncated = true
					break
				}
				lines = append(lines, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				return ReadFileOutput{}, fmt.Errorf("reading file: %w", err)
			}

			out.Content = strings.Join(lines, "\n")
			out.Lines = len(lines)
			return out, nil
		},
	)
}

// FindFilesInput is a glob pattern and base directory.
type FindFilesInput struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Glob pattern (e.g. **/*.go for all Go files)"`
	Path    string `json:"path,omitempty" jsonschema:"description=Base directory to search from (default: current directory)"`
}

// FindFilesOutput lists the matched paths.
type FindFilesOutput struct {
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// FindFiles returns a tool that matches files with doublestar globs.
func FindFiles() chat.Tool {
	return chat.MustNewTool(
		"find_files",
		"Find files matching a glob pattern. Supports ** for recursive matching.",
		func(ctx context.Context, in FindFilesInput) (FindFilesOutput, error) {
			base := in.Path
			if base == "" {
				base = "."
			}
			base = filepath.Clean(base)

			matches, err := doublestar.Glob(os.DirFS(base), in.Pattern)
			if err != nil {
				return FindFilesOutput{}, err
			}
			if base != "." {
				for i, m := range matches {
					matches[i] = filepath.Join(base, m)
				}
			}
			return FindFilesOutput{Files: matches, Count: len(matches)}, nil
		},
	)
}

// SearchFilesInput is a regular expression search over files.
type SearchFilesInput struct {
	Pattern    string `json:"pattern" jsonschema:"required,description=Regular expression to search for"`
	Path       string `json:"path,omitempty" jsonschema:"description=File or directory to search in (default: current directory)"`
	Glob       string `json:"glob,omitempty" jsonschema:"description=File pattern filter (e.g. *.go)"`
	MaxMatches int    `json:"max_matches,omitempty" jsonschema:"description=Maximum matches to return (default: 100)"`
}

// SearchMatch is one matching line.
type SearchMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// SearchFilesOutput lists the matching lines.
type SearchFilesOutput struct {
	Matches []SearchMatch `json:"matches"`
	Count   int           `json:"count"`
}

// SearchFiles returns a tool that greps files for a regular expression.
func SearchFiles() chat.Tool {
	return chat.MustNewTool(
		"search_files",
		"Search for a regular expression in files. Returns matching lines with file and line number.",
		searchFiles,
	)
}

func searchFiles(ctx context.Context, in SearchFilesInput) (SearchFilesOutput, error) {
	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return SearchFilesOutput{}, err
	}

	limit := in.MaxMatches
	if limit <= 0 {
		limit = 100
	}

	files, err := collectFiles(in.Path, in.Glob)
	if err != nil {
		return SearchFilesOutput{}, err
	}

	var matches []SearchMatch
	for _, path := range files {
		if len(matches) >= limit {
			break
		}
		found, err := searchOneFile(path, re, limit-len(matches))
		if err != nil {
			// Unreadable or binary files are skipped, not fatal.
			continue
		}
		matches = append(matches, found...)
	}
	return SearchFilesOutput{Matches: matches, Count: len(matches)}, nil
}

func collectFiles(base, glob string) ([]string, error) {
	if base == "" {
		base = "."
	}
	info, err := os.Stat(base)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{base}, nil
	}

	if glob == "" {
		glob = "**/*"
	}
	names, err := doublestar.Glob(os.DirFS(base), glob)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, name := range names {
		path := filepath.Join(base, name)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			files = append(files, path)
		}
	}
	return files, nil
}

func searchOneFile(path string, re *regexp.Regexp, limit int) ([]SearchMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var matches []SearchMatch
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		matches = append(matches, SearchMatch{File: path, Line: n, Content: line})
		if len(matches) >= limit {
			break
		}
	}
	return matches, scanner.Err()
}
