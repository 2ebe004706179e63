// SPDX-License-Identifier: MPL-2.0

package sysext

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avocado-linux/avocadoctl/internal/release"
)

type (
	// Hierarchy is one entry of "status --json=short".
	Hierarchy struct {
		Path       string        `json:"hierarchy" yaml:"hierarchy"`
		Extensions ExtensionList `json:"extensions" yaml:"extensions"`
		// Since is the merge time in microseconds since the epoch, 0 if unmerged.
		Since int64 `json:"since,omitempty" yaml:"since,omitempty"`
	}

	// ExtensionList decodes the "extensions" field, which systemd reports as
	// either an array of names or the string "none".
	ExtensionList []string
)

// UnmarshalJSON implements json.Unmarshaler.
func (l *ExtensionList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "none" || s == "" {
			*l = nil
		} else {
			*l = ExtensionList{s}
		}
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("extensions: %w", err)
	}
	*l = names
	return nil
}

// MergedAt returns Since as a time, or the zero time.
func (h Hierarchy) MergedAt() time.Time {
	if h.Since <= 0 {
		return time.Time{}
	}
	return time.UnixMicro(h.Since)
}

// ParseStatus decodes status output. Empty output means nothing is merged.
func ParseStatus(data []byte) ([]Hierarchy, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var hs []Hierarchy
	if err := json.Unmarshal(data, &hs); err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	return hs, nil
}

// MergedNames returns the distinct extension names across hierarchies in
// first-seen order.
func MergedNames(hs []Hierarchy) []string {
	var set release.OrderedSet[string]
	for _, h := range hs {
		for _, n := range h.Extensions {
			set.Add(n)
		}
	}
	if set.Len() == 0 {
		return nil
	}
	return set.Values()
}
