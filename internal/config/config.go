// Package config loads the scenario configuration: embedded defaults
// overlaid by an optional .scaffoldcheck.yaml or .scaffoldcheck.toml file
// in the project root.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Default values for runner configuration.
const (
	DefaultTimeout      = 15 * time.Second
	DefaultBuildTimeout = 2 * time.Minute
	DefaultMaxOutput    = 1 << 20 // 1 MB
	DefaultWorkers      = 1
)

// FileNames lists the project config files in lookup order.
var FileNames = []string{".scaffoldcheck.yaml", ".scaffoldcheck.yml", ".scaffoldcheck.toml"}

// ErrUnknownFormat is returned for config files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.New("unknown config format")

//go:embed default.yaml
var defaultYAML []byte

// Config holds the merged configuration. Zero values fall back to defaults
// through the accessor methods.
type Config struct {
	RawTimeout   string            `yaml:"timeout" toml:"timeout"`       // e.g. "15s"
	RawMaxOutput int               `yaml:"max_output" toml:"max_output"` // bytes per stream
	RawParallel  int               `yaml:"parallel" toml:"parallel"`     // concurrent shareable scenarios
	Shell        []string          `yaml:"shell" toml:"shell"`           // e.g. [bash, -c]
	Env          map[string]string `yaml:"env" toml:"env"`               // overlaid on the tool environment
	Scratch      ScratchConfig     `yaml:"scratch" toml:"scratch"`
	Layout       LayoutConfig      `yaml:"layout" toml:"layout"`
	Checks       []CheckConfig     `yaml:"checks" toml:"checks"`
	Tools        ToolsConfig       `yaml:"tools" toml:"tools"`
	Fixtures     FixturesConfig    `yaml:"fixtures" toml:"fixtures"`
	Build        BuildConfig       `yaml:"build" toml:"build"`
	Skip         []string          `yaml:"skip" toml:"skip"` // scenario names or prefix/ to drop
}

// ScratchConfig controls where fixtures are written.
type ScratchConfig struct {
	Dir string `yaml:"dir" toml:"dir"` // relative to the project root
	Ext string `yaml:"ext" toml:"ext"` // fixture file extension, e.g. ".ts"
}

// LayoutConfig lists paths that must exist.
type LayoutConfig struct {
	Files    []string `yaml:"files" toml:"files"`
	Dirs     []string `yaml:"dirs" toml:"dirs"`
	HooksDir string   `yaml:"hooks_dir" toml:"hooks_dir"`
	Hooks    []string `yaml:"hooks" toml:"hooks"`
}

// CheckConfig is one structural scenario over a JSON document.
type CheckConfig struct {
	Name        string        `yaml:"name" toml:"name"`
	Description string        `yaml:"description" toml:"description"`
	Document    string        `yaml:"document" toml:"document"`
	Fields      []FieldConfig `yaml:"fields" toml:"fields"`
}

// FieldConfig is one field expectation. Equals and Contains are left nil
// when unset.
type FieldConfig struct {
	Path     []string   `yaml:"path" toml:"path"`
	AnyOf    [][]string `yaml:"any_of" toml:"any_of"` // alternative paths; one must be present
	Equals   any        `yaml:"equals" toml:"equals"`
	Contains any        `yaml:"contains" toml:"contains"`
	Type     string     `yaml:"type" toml:"type"` // string, number, bool, array, object, null
}

// Query is a command whose output is matched against a marker.
type Query struct {
	Command  string `yaml:"command" toml:"command"`
	Contains string `yaml:"contains" toml:"contains"`
	Pattern  string `yaml:"pattern" toml:"pattern"`
}

// ToolsConfig holds the command lines for each collaborator. An empty
// command omits the scenarios that use it.
type ToolsConfig struct {
	Compiler       CompilerConfig       `yaml:"compiler" toml:"compiler"`
	Linter         LinterConfig         `yaml:"linter" toml:"linter"`
	Formatter      FormatterConfig      `yaml:"formatter" toml:"formatter"`
	Runtime        RuntimeConfig        `yaml:"runtime" toml:"runtime"`
	PackageManager PackageManagerConfig `yaml:"package_manager" toml:"package_manager"`
}

// CompilerConfig controls the compiler scenarios.
type CompilerConfig struct {
	Version   Query  `yaml:"version" toml:"version"`
	TypeCheck string `yaml:"type_check" toml:"type_check"`
	CheckFile string `yaml:"check_file" toml:"check_file"`
}

// LinterConfig controls the linter scenarios.
type LinterConfig struct {
	Version   Query  `yaml:"version" toml:"version"`
	Probe     string `yaml:"probe" toml:"probe"` // must emit JSON on stdout
	CheckFile string `yaml:"check_file" toml:"check_file"`
}

// FormatterConfig controls the formatter scenarios.
type FormatterConfig struct {
	Version   Query  `yaml:"version" toml:"version"`
	CheckFile string `yaml:"check_file" toml:"check_file"`
	WriteFile string `yaml:"write_file" toml:"write_file"`
}

// RuntimeConfig controls the runtime presence check.
type RuntimeConfig struct {
	Version Query `yaml:"version" toml:"version"`
}

// PackageManagerConfig controls the package manager scenarios.
type PackageManagerConfig struct {
	Version Query `yaml:"version" toml:"version"`
	Scripts Query `yaml:"scripts" toml:"scripts"`
}

// FixturesConfig holds the fixture sources written for tool scenarios.
type FixturesConfig struct {
	Valid       string `yaml:"valid" toml:"valid"`
	LintProbe   string `yaml:"lint_probe" toml:"lint_probe"`
	LintInvalid string `yaml:"lint_invalid" toml:"lint_invalid"`
	Formatted   string `yaml:"formatted" toml:"formatted"`
	Unformatted string `yaml:"unformatted" toml:"unformatted"`
	Build       string `yaml:"build" toml:"build"`
}

// BuildConfig controls the clean/build scenarios.
type BuildConfig struct {
	Clean      string `yaml:"clean" toml:"clean"`
	Command    string `yaml:"command" toml:"command"`
	Output     string `yaml:"output" toml:"output"` // directory the build emits
	RawTimeout string `yaml:"timeout" toml:"timeout"`
}

// Timeout returns the configured per-command timeout or the default.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.RawTimeout, DefaultTimeout)
}

// BuildTimeout returns the timeout for clean and build commands.
func (c *Config) BuildTimeout() time.Duration {
	return parseDuration(c.Build.RawTimeout, DefaultBuildTimeout)
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// Workers returns the parallelism bound for shareable scenarios.
func (c *Config) Workers() int {
	if c.RawParallel > 0 {
		return c.RawParallel
	}
	return DefaultWorkers
}

// ShellArgv returns the configured shell prefix, or nil for the platform default.
func (c *Config) ShellArgv() []string {
	if len(c.Shell) == 0 {
		return nil
	}
	return c.Shell
}

// ScratchExt returns the fixture extension with a leading dot.
func (c *Config) ScratchExt() string {
	ext := strings.TrimSpace(c.Scratch.Ext)
	if ext == "" {
		return ".ts"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Skipped reports whether name is excluded by the skip list. Entries
// ending in "/" match every scenario with that prefix.
func (c *Config) Skipped(name string) bool {
	for _, s := range c.Skip {
		if s == name || (strings.HasSuffix(s, "/") && strings.HasPrefix(name, s)) {
			return true
		}
	}
	return false
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}

// Validate reports every malformed entry at once.
func (c *Config) Validate() error {
	var errs []error
	if c.RawTimeout != "" {
		if d, err := time.ParseDuration(c.RawTimeout); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("timeout %q: want a positive duration", c.RawTimeout))
		}
	}
	seen := make(map[string]bool, len(c.Checks))
	for i, chk := range c.Checks {
		if chk.Name == "" {
			errs = append(errs, fmt.Errorf("checks[%d]: name is required", i))
		} else if seen[chk.Name] {
			errs = append(errs, fmt.Errorf("checks[%d]: duplicate name %q", i, chk.Name))
		}
		seen[chk.Name] = true
		if chk.Document == "" {
			errs = append(errs, fmt.Errorf("check %q: document is required", chk.Name))
		}
		for j, f := range chk.Fields {
			if len(f.Path) == 0 && len(f.AnyOf) == 0 {
				errs = append(errs, fmt.Errorf("check %q: fields[%d]: path or any_of is required", chk.Name, j))
			}
		}
	}
	for _, q := range []Query{
		c.Tools.Compiler.Version, c.Tools.Linter.Version, c.Tools.Formatter.Version,
		c.Tools.Runtime.Version, c.Tools.PackageManager.Version, c.Tools.PackageManager.Scripts,
	} {
		if q.Pattern == "" {
			continue
		}
		if _, err := regexp.Compile(q.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("pattern for %q: %w", q.Command, err))
		}
	}
	return errors.Join(errs...)
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// LoadResult holds the merged config and the discovered project root.
type LoadResult struct {
	Config *Config
	Root   string // directory containing package.json; falls back to the start dir
	Source string // config file that was applied, empty when none
}

// Load discovers the project root by walking upward from dir looking for
// package.json, then overlays the first project config file found there.
// If no config file exists the defaults are returned.
func Load(dir string) (*LoadResult, error) {
	root, err := FindProjectRoot(dir)
	if err != nil {
		// No package.json found; use dir as root.
		root, err = filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", dir, err)
		}
	}

	res := &LoadResult{Config: Default(), Root: root}
	for _, name := range FileNames {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		if err := Overlay(res.Config, path); err != nil {
			return nil, err
		}
		res.Source = path
		break
	}
	if err := res.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return res, nil
}

// Overlay decodes the file at path on top of cfg. Scalars and lists
// replace the current values; env entries merge; checks merge by name,
// with new names appended.
func Overlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	base := cfg.Checks
	cfg.Checks = nil

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		cfg.Checks = base
		return fmt.Errorf("%s: %w", filepath.Base(path), ErrUnknownFormat)
	}
	if err != nil {
		cfg.Checks = base
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	cfg.Checks = mergeChecks(base, cfg.Checks)
	return nil
}

func mergeChecks(base, over []CheckConfig) []CheckConfig {
	if len(over) == 0 {
		return base
	}
	out := append([]CheckConfig(nil), base...)
	index := make(map[string]int, len(out))
	for i, c := range out {
		index[c.Name] = i
	}
	for _, c := range over {
		if i, ok := index[c.Name]; ok {
			out[i] = c
			continue
		}
		index[c.Name] = len(out)
		out = append(out, c)
	}
	return out
}

// FindProjectRoot walks upward from dir looking for a directory containing
// package.json.
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("package.json not found")
		}
		dir = parent
	}
}
