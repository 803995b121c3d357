package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := ParseConfig([]byte(""), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ErrorFunction != DefaultErrorFunction {
		t.Errorf("error_function = %q, want %q", cfg.ErrorFunction, DefaultErrorFunction)
	}
	if *cfg.NonDetValue != DefaultNonDetValue {
		t.Errorf("nondet_value = %d, want %d", *cfg.NonDetValue, DefaultNonDetValue)
	}
	if !*cfg.StrictNonDet {
		t.Error("strict_nondet should default to true")
	}
	if cfg.MemoryBytes() != DefaultMemoryLimit {
		t.Errorf("memory limit = %d, want %d", cfg.MemoryBytes(), DefaultMemoryLimit)
	}
	if cfg.MaxCallDepth != DefaultMaxCallDepth {
		t.Errorf("max_call_depth = %d, want %d", cfg.MaxCallDepth, DefaultMaxCallDepth)
	}
	if cfg.Results.Path != DefaultResultsDB {
		t.Errorf("results path = %q, want %q", cfg.Results.Path, DefaultResultsDB)
	}
}

func TestParseConfig_Full(t *testing.T) {
	yaml := `
error_function: __VERIFIER_error
nondet_sources: ["__VERIFIER_nondet_*", "input_*"]
skip_intrinsics: [pow, "str*"]
nondet_value: 42
strict_nondet: false
memory_limit: 16MiB
max_call_depth: 100
trace: true
results:
  record: true
  path: runs.db
`
	cfg, err := ParseConfig([]byte(yaml), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ErrorFunction != "__VERIFIER_error" {
		t.Errorf("error_function = %q", cfg.ErrorFunction)
	}
	if *cfg.NonDetValue != 42 {
		t.Errorf("nondet_value = %d, want 42", *cfg.NonDetValue)
	}
	if *cfg.StrictNonDet {
		t.Error("strict_nondet = true, want false")
	}
	if cfg.MemoryBytes() != 16<<20 {
		t.Errorf("memory limit = %d, want %d", cfg.MemoryBytes(), 16<<20)
	}
	if !cfg.Trace || !cfg.Results.Record || cfg.Results.Path != "runs.db" {
		t.Errorf("unexpected trace/results settings: %+v %+v", cfg.Trace, cfg.Results)
	}

	ec := cfg.EvalConfig()
	if ec.ErrorFunction != "__VERIFIER_error" || ec.NonDetValue != 42 || ec.StrictNonDet {
		t.Errorf("EvalConfig = %+v", ec)
	}
	if ec.MaxCallDepth != 100 || ec.MemoryLimit != 16<<20 {
		t.Errorf("EvalConfig limits = %d, %d", ec.MaxCallDepth, ec.MemoryLimit)
	}
	if !ec.NonDetSources.Match("input_byte") || ec.NonDetSources.Match("output") {
		t.Error("nondet sources do not follow the patterns")
	}
	if !ec.SkipIntrinsics.Match("strlen") || ec.SkipIntrinsics.Match("printf") {
		t.Error("skipped intrinsics do not follow the patterns")
	}
}

func TestParseConfig_UnlimitedMemory(t *testing.T) {
	cfg, err := ParseConfig([]byte("memory_limit: unlimited\n"), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MemoryBytes() != 0 {
		t.Errorf("memory limit = %d, want 0", cfg.MemoryBytes())
	}
}

func TestParseConfig_DefaultSkipIsNil(t *testing.T) {
	cfg, err := ParseConfig([]byte("trace: false\n"), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ec := cfg.EvalConfig(); ec.SkipIntrinsics != nil {
		t.Errorf("SkipIntrinsics = %v, want nil", ec.SkipIntrinsics)
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "error_function: [", "parsing test.yaml"},
		{"bad error function", "error_function: 1abc\n", "not a C identifier"},
		{"bad glob", "nondet_sources: [\"[a\"]\n", "nondet_sources"},
		{"bad skip glob", "skip_intrinsics: [\"[x\"]\n", "skip_intrinsics"},
		{"bad memory", "memory_limit: lots\n", "memory_limit"},
		{"negative depth", "max_call_depth: -1\n", "max_call_depth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "test.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, ConfigFileName)
	if err := os.WriteFile(path, []byte("trace: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	found, err := FindConfig(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != path {
		t.Errorf("found = %q, want %q", found, path)
	}
}

func TestResolve_RelativeResultsPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileNameAlt), []byte("results:\n  path: runs.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Resolve("", filepath.Join(dir, "prog.c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "runs.db"); cfg.Results.Path != want {
		t.Errorf("results path = %q, want %q", cfg.Results.Path, want)
	}
}

func TestNameMatcher(t *testing.T) {
	m, err := CompileNames("__VERIFIER_nondet_*", "read_?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		name string
		want bool
	}{
		{"__VERIFIER_nondet_int", true},
		{"__VERIFIER_error", false},
		{"read_a", true},
		{"read_ab", false},
	}
	for _, tt := range tests {
		if got := m.Match(tt.name); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
	if m.String() != "__VERIFIER_nondet_*, read_?" {
		t.Errorf("String() = %q", m.String())
	}
	var none *NameMatcher
	if none.Match("x") {
		t.Error("nil matcher matched")
	}
}

func TestRevalidate(t *testing.T) {
	cfg := Default()
	cfg.MemoryLimit = "unlimited"
	if err := cfg.Revalidate(); err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if cfg.MemoryBytes() != 0 {
		t.Errorf("MemoryBytes = %d, want 0", cfg.MemoryBytes())
	}

	cfg.ErrorFunction = "not an identifier"
	if err := cfg.Revalidate(); err == nil {
		t.Error("expected an error for a bad error function")
	}
}
