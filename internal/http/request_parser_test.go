package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"souzoku/internal/core"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"land": 3000, "insurance": "1,500", "savings": 12345.67, "children": 2, "spouse_inherits_all": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/simulate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := core.RawInput{
		Land:              "3000",
		Insurance:         "1,500",
		Savings:           "12345.67",
		Stocks:            "",
		Children:          "2",
		SpouseInheritsAll: true,
	}
	if got := parser.RawInput(); got != want {
		t.Errorf("RawInput() = %+v, want %+v", got, want)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "land=3000&insurance=500&savings=1000&stocks=500&children=0&spouse_inherits_all=on"
	req := httptest.NewRequest(http.MethodPost, "/simulate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	raw := parser.RawInput()
	if raw.Land != "3000" || raw.Children != "0" || !raw.SpouseInheritsAll {
		t.Errorf("unexpected RawInput %+v", raw)
	}
}

func TestRequestBodyParser_Bool(t *testing.T) {
	for value, want := range map[string]bool{"on": true, "true": true, "1": true, "": false, "off": false, "no": false} {
		req := httptest.NewRequest(http.MethodPost, "/simulate", strings.NewReader("flag="+value))
		parser := NewRequestBodyParser(req)
		if err := parser.Parse(); err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if got := parser.Bool("flag"); got != want {
			t.Errorf("Bool(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/simulate", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
	if raw := parser.RawInput(); raw != (core.RawInput{}) {
		t.Errorf("RawInput() = %+v, want zero", raw)
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
	}{
		{"broken JSON", `{"land": `, "application/json"},
		{"JSON array is not an object", `[1,2]`, "application/json"},
		{"bad form escape", "land=%zz", "application/x-www-form-urlencoded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			parser := NewRequestBodyParser(req)
			if err := parser.Parse(); err == nil {
				t.Fatal("expected parse error")
			}
			if err := parser.Parse(); err == nil {
				t.Fatal("second Parse() should return the cached error")
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  12\x00 34\t "); got != "12 34" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
