package templates

import (
	"strings"
	"testing"
)

func TestRenderInjectsVariables(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render(
		"Hi {{ broker_name }}, we run {{ lanes | lane_list }} weekly out of {{ home_state | region }}.",
		map[string]any{
			"broker_name": "Apex Logistics",
			"lanes":       "NJ-PA, NJ-NY",
			"home_state":  "nj",
		},
	)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "Hi Apex Logistics, we run NJ-PA and NJ-NY weekly out of NJ."
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestRenderDefaultFilter(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render(`Hi {{ broker_name | default: "there" }}`, map[string]any{"broker_name": ""})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hi there" {
		t.Errorf("out = %q, want fallback", out)
	}
}

func TestRenderParseErrorReturnsSource(t *testing.T) {
	r := NewRenderer()

	src := "Hi {{ broker_name"
	out, err := r.Render(src, nil)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if out != src {
		t.Errorf("out = %q, want original source on error", out)
	}
}

func TestParseValidatesSyntax(t *testing.T) {
	r := NewRenderer()

	if err := r.Parse("{{ broker_name }}"); err != nil {
		t.Errorf("valid template rejected: %v", err)
	}
	if err := r.Parse("{% if x %}unclosed"); err == nil {
		t.Error("invalid template accepted")
	}
}

func TestRenderCachesCompiledTemplates(t *testing.T) {
	r := NewRenderer()

	src := "Hello {{ broker_name }}"
	if _, err := r.Render(src, map[string]any{"broker_name": "A"}); err != nil {
		t.Fatalf("first render: %v", err)
	}
	out, err := r.Render(src, map[string]any{"broker_name": "B"})
	if err != nil {
		t.Fatalf("cached render: %v", err)
	}
	if !strings.Contains(out, "B") {
		t.Errorf("cached template rendered stale vars: %q", out)
	}
}
