// SPDX-License-Identifier: MPL-2.0

package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.yaml.in/yaml/v3"
)

const (
	// FormatTable renders a styled table.
	FormatTable Format = "table"
	// FormatJSON renders indented JSON.
	FormatJSON Format = "json"
	// FormatYAML renders YAML.
	FormatYAML Format = "yaml"

	// Title heads the table output.
	Title = "Avocado Extension Status"
)

// ErrInvalidFormat is the sentinel error wrapped by InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid output format")

type (
	// Format selects how a Report is rendered.
	Format string

	// InvalidFormatError is returned for an unknown Format.
	InvalidFormatError struct {
		Value Format
	}

	// Styles are the lipgloss styles used by the table renderer.
	Styles struct {
		Title   lipgloss.Style
		Header  lipgloss.Style
		Cell    lipgloss.Style
		Border  lipgloss.Style
		Merged  lipgloss.Style
		Muted   lipgloss.Style
		Warning lipgloss.Style
	}
)

// Formats lists the supported formats.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML}

// Error implements the error interface.
func (e *InvalidFormatError) Error() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return fmt.Sprintf("invalid output format %q: must be one of %s", e.Value, strings.Join(names, ", "))
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

// IsValid reports whether f is a supported format.
func (f Format) IsValid() (bool, []error) {
	if slices.Contains(Formats, f) {
		return true, nil
	}
	return false, []error{&InvalidFormatError{Value: f}}
}

// DefaultStyles returns unstyled defaults.
func DefaultStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:   plain.Bold(true),
		Header:  plain.Bold(true).Padding(0, 1),
		Cell:    plain.Padding(0, 1),
		Border:  plain,
		Merged:  plain,
		Muted:   plain,
		Warning: plain,
	}
}

// Render writes r to w in format.
func Render(w io.Writer, r *Report, format Format, styles Styles) error {
	if valid, errs := format.IsValid(); !valid {
		return errs[0]
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderTable(w, r, styles)
	}
}

func renderTable(w io.Writer, r *Report, styles Styles) error {
	var b strings.Builder
	b.WriteString(styles.Title.Render(Title))
	b.WriteString("\n\n")

	if len(r.Rows) == 0 {
		b.WriteString(styles.Muted.Render("No extensions found."))
		b.WriteString("\n")
	} else {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(styles.Border).
			Headers("Extension", "Type", "Status", "Origin").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return styles.Header
				}
				if col == 2 && row >= 0 && row < len(r.Rows) && r.Rows[row].Status == StateMerged {
					return styles.Merged.Padding(0, 1)
				}
				return styles.Cell
			})
		for _, row := range r.Rows {
			t.Row(row.Extension, row.Type, string(row.Status), string(row.Origin))
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	for _, m := range slices.Sorted(maps.Keys(r.Hierarchies)) {
		for _, h := range r.Hierarchies[m] {
			if at := h.MergedAt(); !at.IsZero() {
				b.WriteString(styles.Muted.Render(fmt.Sprintf("%s %s merged since %s", m, h.Path, at.UTC().Format(time.RFC3339))))
				b.WriteString("\n")
			}
		}
	}

	s := r.Summary
	fmt.Fprintf(&b, "\nSummary: %d merged, %d available, %d HITL\n", s.Merged, s.Available, s.HITL)
	for _, warn := range r.Warnings {
		b.WriteString(styles.Warning.Render("warning: " + warn))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
