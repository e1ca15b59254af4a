package runtime

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Command != "kiro-cli" {
		t.Errorf("Command = %q, want %q", cfg.Command, "kiro-cli")
	}
	if len(cfg.Args) != 1 || cfg.Args[0] != "acp" {
		t.Errorf("Args = %v, want [acp]", cfg.Args)
	}
}

func TestResolvedConfig_WithCwdDoesNotMutateOriginal(t *testing.T) {
	cfg := DefaultConfig()
	derived := cfg.withCwd("/tmp/work")

	if cfg.Cwd != "" {
		t.Errorf("original Cwd mutated: %q", cfg.Cwd)
	}
	if derived.Cwd != "/tmp/work" {
		t.Errorf("derived Cwd = %q, want /tmp/work", derived.Cwd)
	}
}

func TestResolvedConfig_CloneIsIndependent(t *testing.T) {
	cfg := ResolvedConfig{
		Command: "kiro-cli",
		Args:    []string{"acp"},
		Env:     map[string]string{"A": "1"},
	}
	cloned := cfg.clone()
	cloned.Args[0] = "mutated"
	cloned.Env["A"] = "mutated"

	if cfg.Args[0] != "acp" {
		t.Errorf("clone shared Args backing array: got %q", cfg.Args[0])
	}
	if cfg.Env["A"] != "1" {
		t.Errorf("clone shared Env map: got %q", cfg.Env["A"])
	}
}
