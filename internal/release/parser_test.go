// SPDX-License-Identifier: MPL-2.0

package release

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantKinds []Kind
		wantVals  []string
		wantDiags int
	}{
		{
			name:      "unquoted value",
			content:   "AVOCADO_ON_MERGE=depmod\n",
			wantKinds: []Kind{KindOnMerge},
			wantVals:  []string{"depmod"},
		},
		{
			name:      "quoted value keeps inner whitespace",
			content:   `AVOCADO_MODPROBE="nvidia  i915"`,
			wantKinds: []Kind{KindModprobe},
			wantVals:  []string{"nvidia  i915"},
		},
		{
			name:      "comments blank and malformed lines are skipped",
			content:   "# comment\n\nnot an assignment\n=novalue\n1BAD=x\nAVOCADO_ON_UNMERGE=echo bye\n",
			wantKinds: []Kind{KindOnUnmerge},
			wantVals:  []string{"echo bye"},
		},
		{
			name:      "unknown keys are retained",
			content:   "ID=avocado\nVERSION_ID=1.2.0\n",
			wantKinds: []Kind{KindUnknown, KindUnknown},
			wantVals:  []string{"avocado", "1.2.0"},
		},
		{
			name:      "value keeps equals signs",
			content:   "AVOCADO_ON_MERGE=sysctl -w a.b=1\n",
			wantKinds: []Kind{KindOnMerge},
			wantVals:  []string{"sysctl -w a.b=1"},
		},
		{
			name:      "semicolons stay inside one command",
			content:   `AVOCADO_ON_MERGE="cmd1; cmd2"`,
			wantKinds: []Kind{KindOnMerge},
			wantVals:  []string{"cmd1; cmd2"},
		},
		{
			name:      "surrounding whitespace is trimmed",
			content:   "   AVOCADO_ENABLE_SERVICES=svc   \n",
			wantKinds: []Kind{KindEnableServices},
			wantVals:  []string{"svc"},
		},
		{
			name:      "unterminated quote is kept verbatim with a warning",
			content:   `AVOCADO_ON_MERGE="echo hi`,
			wantKinds: []Kind{KindOnMerge},
			wantVals:  []string{`"echo hi`},
			wantDiags: 1,
		},
		{
			name:      "empty value",
			content:   "AVOCADO_ON_MERGE=\n",
			wantKinds: []Kind{KindOnMerge},
			wantVals:  []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			directives, diags := Parse(strings.NewReader(tt.content), "ext", "release")
			if len(diags) != tt.wantDiags {
				t.Errorf("got %d diagnostics, want %d: %v", len(diags), tt.wantDiags, diags)
			}
			if len(directives) != len(tt.wantKinds) {
				t.Fatalf("got %d directives, want %d: %+v", len(directives), len(tt.wantKinds), directives)
			}
			for i, d := range directives {
				if d.Kind != tt.wantKinds[i] {
					t.Errorf("directive %d kind = %v, want %v", i, d.Kind, tt.wantKinds[i])
				}
				if d.Value != tt.wantVals[i] {
					t.Errorf("directive %d value = %q, want %q", i, d.Value, tt.wantVals[i])
				}
				if d.Extension != "ext" {
					t.Errorf("directive %d extension = %q", i, d.Extension)
				}
			}
		})
	}
}

func TestParse_LineNumbers(t *testing.T) {
	t.Parallel()

	directives, _ := Parse(strings.NewReader("# header\n\nAVOCADO_MODPROBE=a\n"), "ext", "f")
	if len(directives) != 1 || directives[0].Line != 3 {
		t.Fatalf("directives = %+v, want one at line 3", directives)
	}
}

func TestParseFile_Missing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "extension-release.gone")
	directives, diags := ParseFile(path, "gone")
	if len(directives) != 0 {
		t.Errorf("expected no directives, got %+v", directives)
	}
	if len(diags) != 1 || diags[0].Code != CodeReleaseFileMissing || diags[0].Severity != SeverityWarning {
		t.Fatalf("diagnostics = %+v, want one release_file_missing warning", diags)
	}
	if diags[0].Extension != "gone" || diags[0].Path != path {
		t.Errorf("diagnostic context = %+v", diags[0])
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	directives, _ := Parse(strings.NewReader("VERSION_ID=1\nVERSION_ID=\"2\"\n"), "", "os-release")
	v, ok := Lookup(directives, "VERSION_ID")
	if !ok || v != "2" {
		t.Errorf("Lookup() = %q, %v; want \"2\", true", v, ok)
	}
	if _, ok := Lookup(directives, "ID"); ok {
		t.Error("Lookup(ID) should miss")
	}
}

func TestKind(t *testing.T) {
	t.Parallel()

	for _, kind := range []Kind{KindOnMerge, KindOnUnmerge, KindModprobe, KindEnableServices} {
		if KindForKey(kind.Key()) != kind {
			t.Errorf("KindForKey(%q) does not round-trip", kind.Key())
		}
	}
	if KindUnknown.Key() != "" || KindUnknown.String() != "unknown" {
		t.Errorf("KindUnknown key/string = %q/%q", KindUnknown.Key(), KindUnknown.String())
	}
	if KindOnMerge.Tokenized() || !KindModprobe.Tokenized() || !KindEnableServices.Tokenized() {
		t.Error("unexpected Tokenized() result")
	}
}
