package runtime

import "testing"

func TestShellWrap_NonWindowsIsNoop(t *testing.T) {
	// shellWrap only rewrites on GOOS=="windows"; this test runs on
	// whatever platform builds the module's CI, which is not Windows.
	cmd, args := shellWrap("my-agent.cmd", []string{"acp"})
	if cmd != "my-agent.cmd" || len(args) != 1 || args[0] != "acp" {
		t.Errorf("shellWrap off Windows should pass through unchanged, got %q %v", cmd, args)
	}
}

func TestShellWrap_ExtensionlessCommandUnaffected(t *testing.T) {
	cmd, args := shellWrap("kiro-cli", []string{"acp"})
	if cmd != "kiro-cli" {
		t.Errorf("extensionless command was rewritten: %q", cmd)
	}
	if len(args) != 1 || args[0] != "acp" {
		t.Errorf("args were rewritten: %v", args)
	}
}
