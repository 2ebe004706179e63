// SPDX-License-Identifier: MPL-2.0

package release

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

type (
	// Extension names an extension and the release files it ships. A sysext
	// file comes before a confext file.
	Extension struct {
		Name  string
		Files []string
	}

	// Catalog holds the directives of an extension set, parsed once.
	Catalog struct {
		directives  []Directive
		diagnostics []Diagnostic
	}

	// ActionList is the ordered, duplicate-free result of aggregating one
	// directive kind across extensions.
	ActionList struct {
		Kind        Kind
		Items       []string
		Diagnostics []Diagnostic
	}
)

// Load parses the release files of exts in alphabetical extension order.
func Load(exts []Extension) *Catalog {
	sorted := slices.SortedFunc(slices.Values(exts), func(a, b Extension) int {
		return cmp.Compare(a.Name, b.Name)
	})

	c := &Catalog{}
	for _, ext := range sorted {
		for _, file := range ext.Files {
			directives, diags := ParseFile(file, ext.Name)
			c.directives = append(c.directives, directives...)
			c.diagnostics = append(c.diagnostics, diags...)
		}
	}
	return c
}

// Diagnostics returns warnings produced while reading release files.
func (c *Catalog) Diagnostics() []Diagnostic {
	return slices.Clone(c.diagnostics)
}

// Actions collects the values of one directive kind. List kinds are split
// on whitespace. Command kinds are kept whole.
func (c *Catalog) Actions(kind Kind) ActionList {
	var (
		set   OrderedSet[string]
		diags []Diagnostic
	)

	for _, d := range c.directives {
		if d.Kind != kind {
			continue
		}
		if !kind.Tokenized() {
			if v := strings.TrimSpace(d.Value); v != "" {
				set.Add(v)
			}
			continue
		}
		if kind == KindEnableServices && strings.ContainsAny(d.Value, `"'`) {
			w := warning(CodeMalformedServices, fmt.Sprintf("ignoring %s with embedded quotes: %s", d.Key, d.Value))
			w.Path, w.Extension, w.Line = d.Path, d.Extension, d.Line
			diags = append(diags, w)
			continue
		}
		for _, token := range strings.Fields(d.Value) {
			set.Add(token)
		}
	}

	return ActionList{Kind: kind, Items: set.Values(), Diagnostics: diags}
}

// Aggregate is Load followed by Actions. Load warnings are included in the
// result's diagnostics.
func Aggregate(exts []Extension, kind Kind) ActionList {
	c := Load(exts)
	list := c.Actions(kind)
	list.Diagnostics = append(c.Diagnostics(), list.Diagnostics...)
	return list
}

// Contains reports whether item is in the list.
func (l ActionList) Contains(item string) bool {
	return slices.Contains(l.Items, item)
}

// Without returns the items other than item, preserving order.
func (l ActionList) Without(item string) []string {
	return slices.DeleteFunc(slices.Clone(l.Items), func(s string) bool { return s == item })
}
