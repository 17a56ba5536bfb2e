package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleResults() map[string]ExtractionResult {
	return map[string]ExtractionResult{
		"success": NewSuccess("https://example.com", "Example Domain",
			"This domain is for use in illustrative examples in documents.",
			MethodHTTP, 200, 1234*time.Millisecond),
		"success without status": NewSuccess("https://example.com/a", "",
			"Body extracted by the readability backend without an HTTP status.",
			MethodReadability, 0, 15*time.Millisecond),
		"failure": NewFailure("https://nope.invalid", "tier 1 (httpx) failed: network error",
			0, 20*time.Millisecond),
		"failure with status": NewFailure("https://example.com/missing",
			"tier 3 (playwright-nojs) failed: HTTP 404", 404, time.Second),
		"unicode body": NewSuccess("https://example.jp", "日本語のタイトル",
			"本文はここにあります <b>&</b> — 記事の内容",
			MethodBrowser, 200, 0),
	}
}

func TestNewSuccess_Invariants(t *testing.T) {
	body := "naïve café body — with multibyte runes"
	r := NewSuccess("https://example.com", "Title", body, MethodBrowserNoJS, 200, 2*time.Second)

	if !r.Success {
		t.Fatal("Success = false, want true")
	}
	if r.Title == nil || r.Body == nil || r.FetchMethod == nil {
		t.Fatalf("success result missing fields: %+v", r)
	}
	if r.Error != nil {
		t.Errorf("Error = %q, want nil", *r.Error)
	}
	if want := len([]rune(body)); r.ContentLength != want {
		t.Errorf("ContentLength = %d, want %d", r.ContentLength, want)
	}
	if r.ElapsedMs != 2000 {
		t.Errorf("ElapsedMs = %d, want 2000", r.ElapsedMs)
	}
	if r.StatusCode == nil || *r.StatusCode != 200 {
		t.Errorf("StatusCode = %v, want 200", r.StatusCode)
	}
}

func TestNewFailure_Invariants(t *testing.T) {
	r := NewFailure("https://example.com", "boom", 0, -time.Second)

	if r.Success {
		t.Fatal("Success = true, want false")
	}
	if r.Error == nil || *r.Error != "boom" {
		t.Errorf("Error = %v, want boom", r.Error)
	}
	if r.Title != nil || r.Body != nil || r.FetchMethod != nil {
		t.Errorf("failure result carries content fields: %+v", r)
	}
	if r.ContentLength != 0 {
		t.Errorf("ContentLength = %d, want 0", r.ContentLength)
	}
	if r.StatusCode != nil {
		t.Errorf("StatusCode = %d, want nil", *r.StatusCode)
	}
	if r.ElapsedMs != 0 {
		t.Errorf("ElapsedMs = %d, want 0 for negative durations", r.ElapsedMs)
	}
}

func TestFromMap_RoundTrip(t *testing.T) {
	for name, r := range sampleResults() {
		t.Run(name, func(t *testing.T) {
			got, err := FromMap(r.ToMap())
			if err != nil {
				t.Fatalf("FromMap: %v", err)
			}
			if diff := cmp.Diff(r, got); diff != "" {
				t.Errorf("FromMap(ToMap(r)) mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToJSON_RoundTrip(t *testing.T) {
	for name, r := range sampleResults() {
		t.Run(name, func(t *testing.T) {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(r.ToJSON()), &parsed); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			back, err := FromMap(parsed)
			if err != nil {
				t.Fatalf("FromMap: %v", err)
			}
			if diff := cmp.Diff(r.ToMap(), back.ToMap()); diff != "" {
				t.Errorf("map mismatch after JSON round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToJSON_FieldOrderAndNulls(t *testing.T) {
	r := NewFailure("https://example.com", "tier 1 (httpx) failed: timeout", 0, 5*time.Millisecond)
	got := r.ToJSON()
	want := `{"success":false,"url":"https://example.com","title":null,"body":null,` +
		`"error":"tier 1 (httpx) failed: timeout","fetch_method":null,"status_code":null,` +
		`"content_length":0,"elapsed_ms":5}`
	if got != want {
		t.Errorf("ToJSON() =\n%s\nwant\n%s", got, want)
	}
}

func TestToJSON_NoEscaping(t *testing.T) {
	r := NewSuccess("https://example.com", "A & B", "<p> café </p>", MethodHTTP, 200, 0)
	got := r.ToJSON()
	for _, s := range []string{"A & B", "<p> café </p>"} {
		if !strings.Contains(got, s) {
			t.Errorf("ToJSON() = %s, want it to contain %q verbatim", got, s)
		}
	}
}

func TestToMap_Keys(t *testing.T) {
	m := NewSuccess("u", "t", "b", MethodHTTP, 0, 0).ToMap()
	if len(m) != len(ResultFields) {
		t.Fatalf("ToMap has %d keys, want %d", len(m), len(ResultFields))
	}
	for _, k := range ResultFields {
		if _, ok := m[k]; !ok {
			t.Errorf("ToMap missing key %q", k)
		}
	}
	if m["status_code"] != nil {
		t.Errorf("status_code = %v, want nil", m["status_code"])
	}
}

func TestFromMap_Errors(t *testing.T) {
	valid := NewSuccess("u", "t", "b", MethodHTTP, 200, 0).ToMap()

	tests := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{"missing field", func(m map[string]any) { delete(m, "elapsed_ms") }},
		{"success wrong type", func(m map[string]any) { m["success"] = "yes" }},
		{"unknown method", func(m map[string]any) { m["fetch_method"] = "curl" }},
		{"fractional length", func(m map[string]any) { m["content_length"] = 1.5 }},
		{"title wrong type", func(m map[string]any) { m["title"] = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := make(map[string]any, len(valid))
			for k, v := range valid {
				m[k] = v
			}
			tt.mutate(m)
			if _, err := FromMap(m); err == nil {
				t.Error("FromMap() error = nil, want error")
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	r := sampleResults()["failure with status"]
	got, err := ParseJSON([]byte(r.ToJSON()))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("ParseJSON mismatch (-want +got):\n%s", diff)
	}
	if _, err := ParseJSON([]byte("{")); err == nil {
		t.Error("ParseJSON(invalid) error = nil, want error")
	}
}
