package llm

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyStrategyOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	content := `mistral:
  temperature: 0.55
  top_k: 25
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ApplyStrategyOverrides(path); err != nil {
		t.Fatal(err)
	}

	strategy, err := SelectStrategy("mistral-7b", "auto")
	if err != nil {
		t.Fatal(err)
	}
	if strategy.Sampling.Temperature != 0.55 {
		t.Errorf("temperature = %v, want override applied", strategy.Sampling.Temperature)
	}
	if strategy.Sampling.TopK != 25 {
		t.Errorf("top_k = %v", strategy.Sampling.TopK)
	}
	// untouched fields keep their defaults
	if strategy.Sampling.TopP != 0.9 {
		t.Errorf("top_p = %v, want default preserved", strategy.Sampling.TopP)
	}
}

func TestApplyStrategyOverridesMissingFile(t *testing.T) {
	if err := ApplyStrategyOverrides(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing file must not be an error: %v", err)
	}
	if err := ApplyStrategyOverrides(""); err != nil {
		t.Errorf("empty path must not be an error: %v", err)
	}
}

func TestApplyStrategyOverridesUnknownFamily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	if err := os.WriteFile(path, []byte("martian: {temperature: 1.0}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ApplyStrategyOverrides(path); err == nil {
		t.Fatal("want error for unknown family")
	}
}

func TestApplyStrategyOverridesMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	if err := os.WriteFile(path, []byte(":\n  - not yaml we accept"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ApplyStrategyOverrides(path); err == nil {
		t.Fatal("want error for malformed file")
	}
}
