// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/avocado-linux/avocadoctl/internal/issue"
	"github.com/avocado-linux/avocadoctl/pkg/types"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "avocadoctl"
	// DefaultConfigPath is read when --config is not given.
	DefaultConfigPath = "/etc/avocado/avocadoctl.conf"

	// ExtensionsPathEnv overrides avocado.ext.dir.
	ExtensionsPathEnv = "AVOCADO_EXTENSIONS_PATH"
	// ReleaseDirEnv overrides avocado.ext.release_dir.
	ReleaseDirEnv = "AVOCADO_EXTENSION_RELEASE_DIR"

	// maxConfigFileSize bounds the config file read into memory.
	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Avocado: AvocadoConfig{
			Ext: ExtConfig{
				Dir: "/var/lib/avocado/extensions",
			},
			HITL: HITLConfig{
				Dir:       "/run/avocado/hitl",
				DropinDir: "/run/systemd/system",
				Port:      types.DefaultNFSPort,
			},
			Runtime: RuntimeConfig{
				Dir:       "/var/lib/avocado/runtime",
				OSRelease: "/etc/os-release",
			},
		},
	}
}

// loadWithOptions performs option-driven config loading and returns the
// config together with the file it was read from ("" for defaults only).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("avocado.ext.dir", defaults.Avocado.Ext.Dir.String())
	v.SetDefault("avocado.ext.release_dir", defaults.Avocado.Ext.ReleaseDir)
	v.SetDefault("avocado.ext.sysext_mutable", "")
	v.SetDefault("avocado.ext.confext_mutable", "")
	v.SetDefault("avocado.ext.mutable", "")
	v.SetDefault("avocado.hitl.dir", defaults.Avocado.HITL.Dir.String())
	v.SetDefault("avocado.hitl.dropin_dir", defaults.Avocado.HITL.DropinDir.String())
	v.SetDefault("avocado.hitl.port", int(defaults.Avocado.HITL.Port))
	v.SetDefault("avocado.hitl.mount_retries", defaults.Avocado.HITL.MountRetries)
	v.SetDefault("avocado.runtime.dir", defaults.Avocado.Runtime.Dir.String())
	v.SetDefault("avocado.runtime.os_release", defaults.Avocado.Runtime.OSRelease)

	if err := v.BindEnv("avocado.ext.dir", ExtensionsPathEnv); err != nil {
		return nil, "", fmt.Errorf("bind %s: %w", ExtensionsPathEnv, err)
	}
	if err := v.BindEnv("avocado.ext.release_dir", ReleaseDirEnv); err != nil {
		return nil, "", fmt.Errorf("bind %s: %w", ReleaseDirEnv, err)
	}

	resolvedPath := ""
	path := opts.ConfigFilePath
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}

	switch {
	case fileExists(path):
		if err := loadTOMLIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid TOML").
				WithSuggestion("Verify the values under [avocado.ext] and [avocado.hitl]").
				WithSuggestion("Run 'avocadoctl config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
		resolvedPath = path
	case explicit:
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Omit --config to use " + DefaultConfigPath).
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Directory settings and overrides must be absolute paths").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// loadTOMLIntoViper decodes a TOML file, validates it against the #Config
// schema and merges it into Viper above the defaults.
func loadTOMLIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("config file is %d bytes, limit is %d", len(data), maxConfigFileSize)
	}

	var configMap map[string]any
	if err := toml.Unmarshal(data, &configMap); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return fmt.Errorf("%s:%d:%d: %s", path, row, col, decodeErr.Error())
		}
		return fmt.Errorf("%s: %w", path, err)
	}

	if err := validateSchema(configMap, path); err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// validateSchema checks mutable modes with the CLI's own wording, then
// unifies the decoded file with #Config.
func validateSchema(configMap map[string]any, path string) error {
	if ext, ok := nestedTable(configMap, "avocado", "ext"); ok {
		for _, key := range []string{"sysext_mutable", "confext_mutable", "mutable"} {
			raw, present := ext[key]
			if !present {
				continue
			}
			s, isString := raw.(string)
			if !isString {
				return fmt.Errorf("%s: avocado.ext.%s: expected a string, got %T", path, key, raw)
			}
			if valid, errs := MutableMode(s).IsValid(); !valid {
				return fmt.Errorf("%s: avocado.ext.%s: %w", path, key, errs[0])
			}
		}
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.Encode(configMap)
	if userValue.Err() != nil {
		return formatSchemaError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatSchemaError(err, path)
	}
	return nil
}

// formatSchemaError renders CUE errors as "<file>: <dotted.path>: <message>" lines.
func formatSchemaError(err error, path string) error {
	all := cueerrors.Errors(err)
	if len(all) == 0 {
		return fmt.Errorf("%s: %w", path, err)
	}

	lines := make([]string, 0, len(all))
	for _, e := range all {
		fieldPath := strings.Join(cueerrors.Path(e), ".")
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if fieldPath != "" {
			lines = append(lines, fmt.Sprintf("%s: %s: %s", path, fieldPath, msg))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s", path, msg))
		}
	}
	return errors.New(strings.Join(dedupe(lines), "\n"))
}

func nestedTable(m map[string]any, keys ...string) (map[string]any, bool) {
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func dedupe(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := lines[:0]
	for _, l := range lines {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// TOML encodes cfg in the configuration file format.
func (c *Config) TOML() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
