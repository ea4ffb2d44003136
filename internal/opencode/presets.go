package opencode

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ralphcodes/ralph/internal/errors"
)

// Preset is a named permission configuration for opencode.json.
type Preset struct {
	Name        string
	Description string
	// Permission is the value of the "permission" key: either a single
	// mode string ("ask", "allow") or a per-tool map.
	Permission any
}

// presets holds the built-in permission presets, keyed by name.
var presets = map[string]Preset{
	"ask-all": {
		Name:        "ask-all",
		Description: "Safe default - ask for all operations",
		Permission:  "ask",
	},
	"allow-all": {
		Name:        "allow-all",
		Description: "Trust mode - allow all operations without prompting",
		Permission:  "allow",
	},
	"read-only": {
		Name:        "read-only",
		Description: "Allow read/search operations, deny edits and bash",
		Permission: map[string]any{
			"read": "allow",
			"list": "allow",
			"glob": "allow",
			"grep": "allow",
			"edit": "deny",
			"bash": "deny",
		},
	},
	"bash-allowlist": {
		Name:        "bash-allowlist",
		Description: "Allow common dev commands (git, npm, etc), ask for others",
		Permission: map[string]any{
			"bash": map[string]any{
				"git *":  "allow",
				"npm *":  "allow",
				"pnpm *": "allow",
				"yarn *": "allow",
				"ls *":   "allow",
				"cat *":  "allow",
				"*":      "ask",
			},
		},
	},
	"standard-dev": {
		Name:        "standard-dev",
		Description: "Read/search allowed, edit/bash require approval",
		Permission: map[string]any{
			"read":      "allow",
			"list":      "allow",
			"glob":      "allow",
			"grep":      "allow",
			"edit":      "ask",
			"bash":      "ask",
			"webfetch":  "allow",
			"websearch": "allow",
		},
	},
}

// PresetNames returns the built-in preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, errors.NewNotFoundError("preset", name)
	}
	return p, nil
}

// agentPermission is the default permission block for agent-scoped
// overrides.
func agentPermission() map[string]any {
	return map[string]any{
		"read": "allow",
		"edit": "ask",
		"bash": "ask",
	}
}

// MergeStrategy controls what happens when the key a preset writes already
// exists in the document.
type MergeStrategy int

const (
	// Merge folds the preset's entries into the existing map. A scalar
	// existing value (permission mode string) is replaced.
	Merge MergeStrategy = iota
	// Replace discards the existing value.
	Replace
)

// ApplyPreset applies a preset's permission block onto an opencode.json
// document and returns the re-marshaled document. An empty document is
// treated as {}.
func ApplyPreset(doc []byte, p Preset, strategy MergeStrategy) ([]byte, error) {
	root, err := parseDoc(doc)
	if err != nil {
		return nil, err
	}

	root["permission"] = mergeValue(root["permission"], p.Permission, strategy)
	return marshalDoc(root)
}

// ApplyAgentPreset writes an agent-scoped permission override at
// agent.<name>.permission, creating intermediate objects as needed.
func ApplyAgentPreset(doc []byte, agentName string, strategy MergeStrategy) ([]byte, error) {
	if agentName == "" {
		return nil, errors.NewValidationError("agent name cannot be empty").WithField("agent")
	}
	root, err := parseDoc(doc)
	if err != nil {
		return nil, err
	}

	agents, ok := root["agent"].(map[string]any)
	if !ok {
		agents = map[string]any{}
		root["agent"] = agents
	}
	agent, ok := agents[agentName].(map[string]any)
	if !ok {
		agent = map[string]any{}
		agents[agentName] = agent
	}

	agent["permission"] = mergeValue(agent["permission"], agentPermission(), strategy)
	return marshalDoc(root)
}

// mergeValue combines an existing permission value with the preset's. Maps
// merge key-by-key under Merge; everything else replaces.
func mergeValue(existing, incoming any, strategy MergeStrategy) any {
	if strategy == Replace {
		return incoming
	}
	existingMap, okE := existing.(map[string]any)
	incomingMap, okI := incoming.(map[string]any)
	if !okE || !okI {
		return incoming
	}
	for k, v := range incomingMap {
		existingMap[k] = v
	}
	return existingMap
}

func parseDoc(doc []byte) (map[string]any, error) {
	if len(doc) == 0 {
		return map[string]any{}, nil
	}
	var root map[string]any
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("opencode.json is not valid JSON: %w", err)
	}
	if root == nil {
		root = map[string]any{}
	}
	return root, nil
}

func marshalDoc(root map[string]any) ([]byte, error) {
	out, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
