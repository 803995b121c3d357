// Package config holds the interpreter's constants and the ctaint.yaml
// configuration file.
//
// A configuration file is optional. When present it is looked up from the
// program's directory upwards, like .gitignore, and tunes how the
// interpreter models non-determinism:
//
//	error_function: reach_error
//	nondet_sources: ["__VERIFIER_nondet_*", "nondet_*"]
//	skip_intrinsics: ["pow"]
//	strict_nondet: false
//	memory_limit: 16MiB
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/ctaint/internal/evaluator"
)

// Config represents the top-level ctaint.yaml configuration.
type Config struct {
	// ErrorFunction is the function whose call marks a reached
	// violation. Defaults to reach_error.
	ErrorFunction string `yaml:"error_function,omitempty"`

	// NonDetSources are glob patterns. A bodyless prototype whose name
	// matches one returns non-deterministic values of its return type.
	NonDetSources []string `yaml:"nondet_sources,omitempty"`

	// SkipIntrinsics are glob patterns of library functions to leave
	// unregistered, so the program (or a nondet pattern) can supply them.
	SkipIntrinsics []string `yaml:"skip_intrinsics,omitempty"`

	// NonDetValue is the concrete value every non-deterministic source
	// yields. Defaults to 1.
	NonDetValue *int64 `yaml:"nondet_value,omitempty"`

	// StrictNonDet taints every variable declared without an
	// initializer, globals included. Defaults to true.
	StrictNonDet *bool `yaml:"strict_nondet,omitempty"`

	// AssumptionMode evaluates whole programs with the witness
	// assumption policy. Meant for debugging witnesses.
	AssumptionMode bool `yaml:"assumption_mode,omitempty"`

	// MemoryLimit caps the interpreter's memory, e.g. "8MiB" or
	// "unlimited". Defaults to 8 MiB.
	MemoryLimit string `yaml:"memory_limit,omitempty"`

	// MaxCallDepth bounds recursion. Defaults to 4096.
	MaxCallDepth int `yaml:"max_call_depth,omitempty"`

	// Trace logs expression and taint events to stderr.
	Trace bool `yaml:"trace,omitempty"`

	// TraceStates logs every program state the witness automaton sees.
	TraceStates bool `yaml:"trace_states,omitempty"`

	// Results configures the run database.
	Results Results `yaml:"results,omitempty"`

	memoryLimit int
	nondet      *NameMatcher
	skip        *NameMatcher
}

// Results configures where runs are recorded.
type Results struct {
	// Record stores every run in the database.
	Record bool `yaml:"record,omitempty"`
	// Path of the SQLite database, relative to the config file.
	Path string `yaml:"path,omitempty"`
}

// Default returns the configuration used when no ctaint.yaml exists.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.validate("<default>"); err != nil {
		panic(err)
	}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a ctaint.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}
	if cfg.Results.Path != "" && !filepath.IsAbs(cfg.Results.Path) {
		cfg.Results.Path = filepath.Join(filepath.Dir(path), cfg.Results.Path)
	}
	return cfg, nil
}

// ParseConfig parses ctaint.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for ctaint.yaml starting from dir and walking up
// to parent directories. Returns the path to the config file, or an
// empty string when there is none.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Resolve loads the configuration governing a program at path: the given
// explicit file, the nearest ctaint.yaml, or the defaults.
func Resolve(explicit, program string) (*Config, error) {
	if explicit != "" {
		return LoadConfig(explicit)
	}
	found, err := FindConfig(filepath.Dir(program))
	if err != nil {
		return nil, err
	}
	if found == "" {
		return Default(), nil
	}
	return LoadConfig(found)
}

// validate checks the configuration for semantic errors and compiles the
// name patterns.
func (c *Config) validate(path string) error {
	if c.ErrorFunction != "" && !isIdentifier(c.ErrorFunction) {
		return fmt.Errorf("%s: error_function %q is not a C identifier", path, c.ErrorFunction)
	}
	if c.MaxCallDepth < 0 {
		return fmt.Errorf("%s: max_call_depth must not be negative", path)
	}

	switch strings.ToLower(strings.TrimSpace(c.MemoryLimit)) {
	case "":
		c.memoryLimit = DefaultMemoryLimit
	case "unlimited", "none", "0":
		c.memoryLimit = 0
	default:
		n, err := humanize.ParseBytes(c.MemoryLimit)
		if err != nil {
			return fmt.Errorf("%s: memory_limit: %w", path, err)
		}
		if n > 1<<40 {
			return fmt.Errorf("%s: memory_limit %s is too large", path, humanize.IBytes(n))
		}
		c.memoryLimit = int(n)
	}

	sources := c.NonDetSources
	if len(sources) == 0 {
		sources = []string{DefaultNonDetPattern}
	}
	var err error
	if c.nondet, err = CompileNames(sources...); err != nil {
		return fmt.Errorf("%s: nondet_sources: %w", path, err)
	}
	if len(c.SkipIntrinsics) > 0 {
		if c.skip, err = CompileNames(c.SkipIntrinsics...); err != nil {
			return fmt.Errorf("%s: skip_intrinsics: %w", path, err)
		}
	}
	return nil
}

// Revalidate checks the configuration again after fields were changed in
// code, such as by command-line overrides.
func (c *Config) Revalidate() error {
	if err := c.validate("<flags>"); err != nil {
		return err
	}
	c.setDefaults()
	return nil
}

func (c *Config) setDefaults() {
	if c.ErrorFunction == "" {
		c.ErrorFunction = DefaultErrorFunction
	}
	if len(c.NonDetSources) == 0 {
		c.NonDetSources = []string{DefaultNonDetPattern}
	}
	if c.NonDetValue == nil {
		v := int64(DefaultNonDetValue)
		c.NonDetValue = &v
	}
	if c.StrictNonDet == nil {
		strict := true
		c.StrictNonDet = &strict
	}
	if c.MaxCallDepth == 0 {
		c.MaxCallDepth = DefaultMaxCallDepth
	}
	if c.Results.Path == "" {
		c.Results.Path = DefaultResultsDB
	}
}

// MemoryBytes is the parsed memory limit; zero means unlimited.
func (c *Config) MemoryBytes() int {
	return c.memoryLimit
}

// EvalConfig converts the file settings into an interpreter
// configuration. Output, tracing and the statement hook are left to the
// caller.
func (c *Config) EvalConfig() evaluator.EvalConfig {
	ec := evaluator.DefaultConfig()
	ec.ErrorFunction = c.ErrorFunction
	ec.NonDetValue = *c.NonDetValue
	ec.StrictNonDet = *c.StrictNonDet
	ec.AssumptionMode = c.AssumptionMode
	ec.MemoryLimit = c.memoryLimit
	ec.MaxCallDepth = c.MaxCallDepth
	ec.NonDetSources = c.nondet
	if c.skip != nil {
		ec.SkipIntrinsics = c.skip
	}
	return ec
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}
