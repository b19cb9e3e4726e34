package providers

import (
	"encoding/json"
	"testing"
)

func TestParseStructuredJSON_StripsCodeFence(t *testing.T) {
	content := "```json\n{\"ok\":true}\n```"
	got, err := parseStructuredJSON(content)
	if err != nil {
		t.Fatalf("parseStructuredJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("failed to unmarshal parsed JSON: %v", err)
	}
	if ok, _ := parsed["ok"].(bool); !ok {
		t.Fatalf("expected ok=true, got %#v", parsed)
	}
}

func TestParseStructuredJSON_RecoversEmbeddedObject(t *testing.T) {
	content := "Here is the extraction you asked for:\n{\"grantor_name\":\"JOHN DOE\"}\nLet me know if anything is missing."
	got, err := parseStructuredJSON(content)
	if err != nil {
		t.Fatalf("parseStructuredJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("failed to unmarshal parsed JSON: %v", err)
	}
	if parsed["grantor_name"] != "JOHN DOE" {
		t.Fatalf("expected grantor_name, got %#v", parsed)
	}
}

func TestParseStructuredJSON_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"no json", "I was unable to read the document."},
		{"unbalanced", "{\"a\": "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseStructuredJSON(tt.content); err == nil {
				t.Fatalf("expected error for %q", tt.content)
			}
		})
	}
}

func TestValidateStructuredJSON(t *testing.T) {
	schema := json.RawMessage(`{
		"type":"object",
		"properties":{
			"note_amount":{"type":"string"}
		},
		"additionalProperties":true
	}`)

	if err := validateStructuredJSON(schema, json.RawMessage(`{"note_amount":"250000.00"}`)); err != nil {
		t.Fatalf("validateStructuredJSON(valid) error = %v", err)
	}

	if err := validateStructuredJSON(schema, json.RawMessage(`{"note_amount":250000}`)); err == nil {
		t.Fatal("expected validation error for wrong type")
	}

	// Nil schema validates trivially.
	if err := validateStructuredJSON(nil, json.RawMessage(`{"anything":true}`)); err != nil {
		t.Fatalf("validateStructuredJSON(nil schema) error = %v", err)
	}
}
