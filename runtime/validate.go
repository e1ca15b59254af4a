package runtime

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// RawConfig is the shape configuration arrives in before validation: every
// field typed as interface{} so a type mismatch (a number where a string
// belongs, say) is reported as a ValidationIssue instead of a decode panic.
type RawConfig struct {
	Command interface{} `json:"command"`
	Args    interface{} `json:"args"`
	Cwd     interface{} `json:"cwd"`
	Env     interface{} `json:"env"`
}

// ValidationIssue is one path-qualified problem found while validating a
// RawConfig.
type ValidationIssue struct {
	Path    string
	Message string
}

// ValidationError aggregates every issue found in one validation pass.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("%s: %s", e.Issues[0].Path, e.Issues[0].Message)
	}
	return fmt.Sprintf("%d configuration issues, first at %s: %s", len(e.Issues), e.Issues[0].Path, e.Issues[0].Message)
}

// ValidateConfig checks raw against the resolved shape {command, args, cwd,
// env}, applying the documented defaults for any field that is absent.
// Every field is optional; only a type mismatch is an issue.
func ValidateConfig(raw RawConfig) (ResolvedConfig, error) {
	var issues []ValidationIssue
	resolved := DefaultConfig()

	if raw.Command != nil {
		if s, ok := raw.Command.(string); ok {
			resolved.Command = s
		} else {
			issues = append(issues, ValidationIssue{Path: "command", Message: "must be a string"})
		}
	}

	if raw.Args != nil {
		if list, ok := raw.Args.([]interface{}); ok {
			args := make([]string, 0, len(list))
			for i, v := range list {
				s, ok := v.(string)
				if !ok {
					issues = append(issues, ValidationIssue{Path: fmt.Sprintf("args[%d]", i), Message: "must be a string"})
					continue
				}
				args = append(args, s)
			}
			resolved.Args = args
		} else {
			issues = append(issues, ValidationIssue{Path: "args", Message: "must be an array of strings"})
		}
	}

	if raw.Cwd != nil {
		if s, ok := raw.Cwd.(string); ok {
			resolved.Cwd = s
		} else {
			issues = append(issues, ValidationIssue{Path: "cwd", Message: "must be a string"})
		}
	}

	if raw.Env != nil {
		if m, ok := raw.Env.(map[string]interface{}); ok {
			env := make(map[string]string, len(m))
			for k, v := range m {
				s, ok := v.(string)
				if !ok {
					issues = append(issues, ValidationIssue{Path: "env." + k, Message: "must be a string"})
					continue
				}
				env[k] = s
			}
			resolved.Env = env
		} else {
			issues = append(issues, ValidationIssue{Path: "env", Message: "must be an object of string values"})
		}
	}

	if len(issues) > 0 {
		return ResolvedConfig{}, &ValidationError{Issues: issues}
	}
	return resolved, nil
}

// ConfigSchema is the JSON-tagged shape used purely to generate a JSON
// Schema document for host-side config editors; RawConfig's interface{}
// fields exist for permissive decoding and would produce an unhelpful
// schema.
type ConfigSchema struct {
	Command string            `json:"command,omitempty" jsonschema:"description=Executable to spawn for each agent session,default=kiro-cli"`
	Args    []string          `json:"args,omitempty" jsonschema:"description=Arguments passed to the command"`
	Cwd     string            `json:"cwd,omitempty" jsonschema:"description=Working directory for the spawned process"`
	Env     map[string]string `json:"env,omitempty" jsonschema:"description=Environment variables overlaid on the inherited process environment"`
}

// ConfigJSONSchema renders the configuration shape as a JSON Schema
// document.
func ConfigJSONSchema() (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&ConfigSchema{})
	return json.Marshal(schema)
}
