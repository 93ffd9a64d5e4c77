package config

import (
	"reflect"
	"testing"
)

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	nested := map[string]any{
		"listen": ":8420",
		"agent": map[string]any{
			"model":     "claude-sonnet-4",
			"max_turns": float64(25),
		},
	}

	flat := Flatten(nested)
	if flat["listen"] != ":8420" {
		t.Errorf("expected top-level key, got %v", flat["listen"])
	}
	if flat["agent.model"] != "claude-sonnet-4" {
		t.Errorf("expected dotted key, got %v", flat["agent.model"])
	}

	back := Unflatten(flat)
	if !reflect.DeepEqual(back, nested) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", back, nested)
	}
}

func TestMaskSecrets(t *testing.T) {
	flat := map[string]any{
		"agent.api_key":  "sk-abcdef1234",
		"telegram.token": "ab",
		"agent.model":    "claude-sonnet-4",
	}

	masked := MaskSecrets(flat)
	if masked["agent.api_key"] != "***1234" {
		t.Errorf("expected masked key, got %v", masked["agent.api_key"])
	}
	if masked["telegram.token"] != "***ab" {
		t.Errorf("expected short secret masked whole, got %v", masked["telegram.token"])
	}
	if masked["agent.model"] != "claude-sonnet-4" {
		t.Errorf("non-secret must pass through, got %v", masked["agent.model"])
	}
}

func TestIsSecretKey(t *testing.T) {
	if !IsSecretKey("agent.api_key") {
		t.Error("agent.api_key should be secret")
	}
	if IsSecretKey("agent.model") {
		t.Error("agent.model should not be secret")
	}
}
