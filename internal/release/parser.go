// SPDX-License-Identifier: MPL-2.0

package release

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

const maxLineBytes = 1 << 20

// Directive is one KEY=VALUE line of a release file.
type Directive struct {
	Kind Kind
	// Key is the key as written, kept for unknown directives.
	Key string
	// Value has surrounding double quotes removed.
	Value string
	// Extension is the identifier of the owning extension.
	Extension string
	// Path is the release file the line came from.
	Path string
	// Line is the 1-based line number.
	Line int
}

// Parse reads KEY=VALUE lines from r. Blank lines, comments and lines that
// are not assignments are skipped.
func Parse(r io.Reader, extension, path string) ([]Directive, []Diagnostic) {
	var (
		directives []Directive
		diags      []Diagnostic
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, raw, ok := strings.Cut(line, "=")
		if !ok || !isIdentifier(key) {
			continue
		}

		value, terminated := unquote(raw)
		if !terminated {
			d := warning(CodeUnterminatedQuote, fmt.Sprintf("%s has an unterminated quote; using the value verbatim", key))
			d.Path, d.Extension, d.Line = path, extension, lineNo
			diags = append(diags, d)
		}

		directives = append(directives, Directive{
			Kind:      KindForKey(key),
			Key:       key,
			Value:     value,
			Extension: extension,
			Path:      path,
			Line:      lineNo,
		})
	}

	if err := scanner.Err(); err != nil {
		d := warning(CodeReleaseFileMissing, "stopped reading release file: "+err.Error())
		d.Path, d.Extension, d.Cause = path, extension, err
		diags = append(diags, d)
	}

	return directives, diags
}

// ParseFile parses the release file at path. A missing or unreadable file
// yields no directives and a warning.
func ParseFile(path, extension string) ([]Directive, []Diagnostic) {
	f, err := os.Open(path)
	if err != nil {
		msg := "release file is not readable"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "release file not found"
		}
		d := warning(CodeReleaseFileMissing, msg)
		d.Path, d.Extension, d.Cause = path, extension, err
		return nil, []Diagnostic{d}
	}
	defer f.Close()

	return Parse(f, extension, path)
}

// Lookup returns the value of the last directive with the given key.
func Lookup(directives []Directive, key string) (string, bool) {
	for i := len(directives) - 1; i >= 0; i-- {
		if directives[i].Key == key {
			return directives[i].Value, true
		}
	}
	return "", false
}

// unquote strips one pair of surrounding double quotes. It reports false for
// a value that opens a quote without closing it.
func unquote(raw string) (string, bool) {
	if !strings.HasPrefix(raw, `"`) {
		return raw, true
	}
	if len(raw) >= 2 && strings.HasSuffix(raw, `"`) {
		return raw[1 : len(raw)-1], true
	}
	return raw, false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
