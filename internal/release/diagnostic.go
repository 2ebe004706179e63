// SPDX-License-Identifier: MPL-2.0

package release

import "fmt"

const (
	// SeverityWarning marks a recoverable problem.
	SeverityWarning Severity = "warning"

	// CodeReleaseFileMissing is reported when an extension has no readable release file.
	CodeReleaseFileMissing = "release_file_missing"
	// CodeReleaseDirUnreadable is reported when a release directory cannot be listed.
	CodeReleaseDirUnreadable = "release_dir_unreadable"
	// CodeUnterminatedQuote is reported for a value with an opening quote only.
	CodeUnterminatedQuote = "unterminated_quote"
	// CodeMalformedServices is reported for an ENABLE_SERVICES value with embedded quotes.
	CodeMalformedServices = "malformed_enable_services"
)

type (
	// Severity is the level of a Diagnostic.
	Severity string

	// Diagnostic is a non-fatal problem found while reading release metadata.
	Diagnostic struct {
		Severity  Severity
		Code      string
		Message   string
		Path      string
		Extension string
		Line      int
		Cause     error
	}
)

// String formats the diagnostic for logs.
func (d Diagnostic) String() string {
	switch {
	case d.Path != "" && d.Line > 0:
		return fmt.Sprintf("%s:%d: %s", d.Path, d.Line, d.Message)
	case d.Path != "":
		return fmt.Sprintf("%s: %s", d.Path, d.Message)
	default:
		return d.Message
	}
}

func warning(code, msg string) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Message: msg}
}
