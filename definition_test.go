package action

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// TestLimits_Defaults verifies DefaultLimits holds every platform default.
func TestLimits_Defaults(t *testing.T) {
	l := DefaultLimits()
	if l.Memory.Megabytes() != StdMemoryMB {
		t.Errorf("memory = %d, want %d", l.Memory.Megabytes(), StdMemoryMB)
	}
	if l.Timeout.Milliseconds() != StdDurationMS {
		t.Errorf("timeout = %d, want %d", l.Timeout.Milliseconds(), StdDurationMS)
	}
	if l.Logs.Megabytes() != StdLogMB {
		t.Errorf("logs = %d, want %d", l.Logs.Megabytes(), StdLogMB)
	}
}

// TestLimits_UnmarshalSubstitutesDefaults verifies that absent fields in a
// limits object decode to their defaults while present fields are kept.
func TestLimits_UnmarshalSubstitutesDefaults(t *testing.T) {
	var l Limits
	if err := json.Unmarshal([]byte(`{"memory":512}`), &l); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if l.Memory.Megabytes() != 512 {
		t.Errorf("memory = %d, want 512", l.Memory.Megabytes())
	}
	if l.Timeout != DefaultTimeLimit() {
		t.Errorf("timeout = %d ms, want default", l.Timeout.Milliseconds())
	}
	if l.Logs != DefaultLogLimit() {
		t.Errorf("logs = %d MB, want default", l.Logs.Megabytes())
	}

	// Empty object: everything defaults.
	if err := json.Unmarshal([]byte(`{}`), &l); err != nil {
		t.Fatalf("Unmarshal({}): %v", err)
	}
	if l != DefaultLimits() {
		t.Errorf("empty object should decode to DefaultLimits, got %+v", l)
	}
}

// TestLimits_UnmarshalInvalidField verifies that an out-of-range field in
// a limits object surfaces the limit decoder's error.
func TestLimits_UnmarshalInvalidField(t *testing.T) {
	var l Limits
	err := json.Unmarshal([]byte(`{"memory":64,"timeout":30000}`), &l)
	if err == nil {
		t.Fatal("want error for memory below minimum")
	}
	if !errors.Is(err, ErrMalformedValue) {
		t.Errorf("error is not ErrMalformedValue: %v", err)
	}
}

// TestLimits_RoundTrip verifies limits survive a JSON round trip intact.
func TestLimits_RoundTrip(t *testing.T) {
	memory, _ := NewMemoryLimit(384)
	timeout, _ := NewTimeLimit(120000)
	logs, _ := NewLogLimit(2)
	l := Limits{Memory: memory, Timeout: timeout, Logs: logs}

	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"memory":384,"timeout":120000,"logs":2}` {
		t.Errorf("wire form = %s", data)
	}
	var back Limits
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != l {
		t.Errorf("round trip = %+v, want %+v", back, l)
	}
}

// ---------------------------------------------------------------------------
// Name validation
// ---------------------------------------------------------------------------

// TestValidateName covers the rejection rules for action names.
func TestValidateName(t *testing.T) {
	valid := []string{"hello", "my-action", "v2.worker", "a"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q): %v", name, err)
		}
	}

	invalid := []string{
		"",
		strings.Repeat("a", maxNameLength+1),
		"../escape",
		"a/b",
		"a\\b",
		"nul\x00byte",
	}
	for _, name := range invalid {
		err := ValidateName(name)
		if err == nil {
			t.Errorf("ValidateName(%q): want error", name)
			continue
		}
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ValidateName(%q): error is not ErrInvalidArgument: %v", name, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Definition JSON codec
// ---------------------------------------------------------------------------

// TestParseDefinition_FullDocument verifies decoding a complete document.
func TestParseDefinition_FullDocument(t *testing.T) {
	doc := `{
		"name": "resize",
		"namespace": "images",
		"entryPoint": "main.js",
		"limits": {"memory": 512, "timeout": 120000, "logs": 5},
		"vars": {"BUCKET": "thumbs"},
		"annotations": {"team": "media"}
	}`
	def, err := ParseDefinition([]byte(doc))
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if def.Name != "resize" || def.Namespace != "images" {
		t.Errorf("identity = %s/%s", def.Namespace, def.Name)
	}
	if def.EntryPoint != "main.js" {
		t.Errorf("entryPoint = %s, want main.js", def.EntryPoint)
	}
	if def.Limits.Memory.Megabytes() != 512 {
		t.Errorf("memory = %d, want 512", def.Limits.Memory.Megabytes())
	}
	if def.Vars["BUCKET"] != "thumbs" {
		t.Errorf("vars = %v", def.Vars)
	}
}

// TestParseDefinition_DefaultsWhenAbsent verifies that a minimal document
// gets default limits and the default entry point.
func TestParseDefinition_DefaultsWhenAbsent(t *testing.T) {
	def, err := ParseDefinition([]byte(`{"name":"hello","namespace":"default"}`))
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if def.Limits != DefaultLimits() {
		t.Errorf("limits = %+v, want defaults", def.Limits)
	}
	if def.EntryPoint != DefaultEntryPoint {
		t.Errorf("entryPoint = %s, want %s", def.EntryPoint, DefaultEntryPoint)
	}
}

// TestParseDefinition_RejectsBadLimit verifies a definition carrying an
// out-of-range memory limit never materializes.
func TestParseDefinition_RejectsBadLimit(t *testing.T) {
	_, err := ParseDefinition([]byte(`{"name":"hello","namespace":"default","limits":{"memory":1024}}`))
	if err == nil {
		t.Fatal("want error for memory above maximum")
	}
	if !errors.Is(err, ErrMalformedValue) {
		t.Errorf("error is not ErrMalformedValue: %v", err)
	}
}

// TestParseDefinition_RejectsBadIdentity verifies name validation runs.
func TestParseDefinition_RejectsBadIdentity(t *testing.T) {
	cases := []string{
		`{"namespace":"default"}`,
		`{"name":"a/b","namespace":"default"}`,
		`{"name":"ok","namespace":"../etc"}`,
	}
	for _, doc := range cases {
		if _, err := ParseDefinition([]byte(doc)); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParseDefinition(%s): want ErrInvalidArgument, got %v", doc, err)
		}
	}
}

// TestDefinition_RoundTrip verifies a definition survives encode/decode.
func TestDefinition_RoundTrip(t *testing.T) {
	memory, _ := NewMemoryLimit(128)
	def := &Definition{
		Name:       "hello",
		Namespace:  "default",
		EntryPoint: DefaultEntryPoint,
		Limits:     Limits{Memory: memory, Timeout: DefaultTimeLimit(), Logs: DefaultLogLimit()},
	}
	data, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := ParseDefinition(data)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if back.Limits != def.Limits || back.Name != def.Name || back.Namespace != def.Namespace {
		t.Errorf("round trip = %+v, want %+v", back, def)
	}
}
