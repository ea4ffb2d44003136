package opencode

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ralphcodes/ralph/internal/errors"
)

func unmarshal(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, data)
	}
	return m
}

func TestPresetNames(t *testing.T) {
	want := []string{"allow-all", "ask-all", "bash-allowlist", "read-only", "standard-dev"}
	if got := PresetNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("PresetNames = %v, want %v", got, want)
	}
}

func TestLookupPreset(t *testing.T) {
	p, err := LookupPreset("read-only")
	if err != nil {
		t.Fatalf("LookupPreset failed: %v", err)
	}
	if p.Name != "read-only" {
		t.Errorf("Name = %q", p.Name)
	}

	_, err = LookupPreset("nope")
	var nf *errors.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestApplyPreset_EmptyDocument(t *testing.T) {
	p, _ := LookupPreset("ask-all")

	out, err := ApplyPreset(nil, p, Merge)
	if err != nil {
		t.Fatalf("ApplyPreset failed: %v", err)
	}

	m := unmarshal(t, out)
	if m["permission"] != "ask" {
		t.Errorf("permission = %v, want ask", m["permission"])
	}
}

func TestApplyPreset_MergeIntoExistingMap(t *testing.T) {
	doc := []byte(`{"permission": {"edit": "allow", "custom": "deny"}, "model": "m"}`)
	p, _ := LookupPreset("read-only")

	out, err := ApplyPreset(doc, p, Merge)
	if err != nil {
		t.Fatalf("ApplyPreset failed: %v", err)
	}

	m := unmarshal(t, out)
	perm := m["permission"].(map[string]any)
	// Preset keys win
	if perm["edit"] != "deny" {
		t.Errorf("edit = %v, want deny", perm["edit"])
	}
	// Keys the preset doesn't mention survive
	if perm["custom"] != "deny" {
		t.Errorf("custom = %v, want deny (preserved)", perm["custom"])
	}
	// Unrelated top-level keys survive
	if m["model"] != "m" {
		t.Errorf("model = %v, want m", m["model"])
	}
}

func TestApplyPreset_Replace(t *testing.T) {
	doc := []byte(`{"permission": {"edit": "allow", "custom": "deny"}}`)
	p, _ := LookupPreset("read-only")

	out, err := ApplyPreset(doc, p, Replace)
	if err != nil {
		t.Fatalf("ApplyPreset failed: %v", err)
	}

	perm := unmarshal(t, out)["permission"].(map[string]any)
	if _, ok := perm["custom"]; ok {
		t.Error("Replace kept a pre-existing key")
	}
	if perm["read"] != "allow" {
		t.Errorf("read = %v, want allow", perm["read"])
	}
}

func TestApplyPreset_ScalarExistingIsReplaced(t *testing.T) {
	doc := []byte(`{"permission": "allow"}`)
	p, _ := LookupPreset("standard-dev")

	out, err := ApplyPreset(doc, p, Merge)
	if err != nil {
		t.Fatalf("ApplyPreset failed: %v", err)
	}

	perm, ok := unmarshal(t, out)["permission"].(map[string]any)
	if !ok {
		t.Fatal("permission is not a map after applying a map preset")
	}
	if perm["bash"] != "ask" {
		t.Errorf("bash = %v, want ask", perm["bash"])
	}
}

func TestApplyPreset_InvalidJSON(t *testing.T) {
	p, _ := LookupPreset("ask-all")
	if _, err := ApplyPreset([]byte("{not json"), p, Merge); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestApplyAgentPreset(t *testing.T) {
	out, err := ApplyAgentPreset(nil, "reviewer", Merge)
	if err != nil {
		t.Fatalf("ApplyAgentPreset failed: %v", err)
	}

	m := unmarshal(t, out)
	agent := m["agent"].(map[string]any)["reviewer"].(map[string]any)
	perm := agent["permission"].(map[string]any)
	if perm["read"] != "allow" || perm["edit"] != "ask" || perm["bash"] != "ask" {
		t.Errorf("agent permission = %v", perm)
	}
}

func TestApplyAgentPreset_MergesExistingAgent(t *testing.T) {
	doc := []byte(`{"agent": {"reviewer": {"permission": {"bash": "deny", "custom": "allow"}, "model": "m"}}}`)

	out, err := ApplyAgentPreset(doc, "reviewer", Merge)
	if err != nil {
		t.Fatalf("ApplyAgentPreset failed: %v", err)
	}

	m := unmarshal(t, out)
	agent := m["agent"].(map[string]any)["reviewer"].(map[string]any)
	perm := agent["permission"].(map[string]any)
	if perm["bash"] != "ask" {
		t.Errorf("bash = %v, want ask (preset wins)", perm["bash"])
	}
	if perm["custom"] != "allow" {
		t.Errorf("custom = %v, want allow (preserved)", perm["custom"])
	}
	if agent["model"] != "m" {
		t.Error("agent's other settings were dropped")
	}
}

func TestApplyAgentPreset_EmptyName(t *testing.T) {
	if _, err := ApplyAgentPreset(nil, "", Merge); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
