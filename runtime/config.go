package runtime

// ResolvedConfig is the immutable, fully-resolved shape the adapter spawns
// an agent from. It is established once at construction and never mutated;
// per-session overrides (currently just cwd) produce a derived copy rather
// than mutating the original.
type ResolvedConfig struct {
	Command string
	Args    []string
	Cwd     string
	Env     map[string]string
}

// DefaultConfig returns the adapter's out-of-the-box defaults: a
// "kiro-cli acp" invocation with no extra environment, cwd resolved by
// the caller (workspace dir, then process cwd).
func DefaultConfig() ResolvedConfig {
	return ResolvedConfig{
		Command: "kiro-cli",
		Args:    []string{"acp"},
		Env:     map[string]string{},
	}
}

// withCwd returns a copy of c with Cwd replaced. ResolvedConfig itself is
// never mutated in place.
func (c ResolvedConfig) withCwd(cwd string) ResolvedConfig {
	c.Cwd = cwd
	return c
}

// clone returns a copy whose Args and Env do not share backing storage with
// c, so a Registry built from a caller's ResolvedConfig is unaffected by
// later changes to that caller's slices and maps.
func (c ResolvedConfig) clone() ResolvedConfig {
	args := make([]string, len(c.Args))
	copy(args, c.Args)
	env := make(map[string]string, len(c.Env))
	for k, v := range c.Env {
		env[k] = v
	}
	return ResolvedConfig{Command: c.Command, Args: args, Cwd: c.Cwd, Env: env}
}
