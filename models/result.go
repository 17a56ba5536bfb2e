package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// FetchMethod identifies which tier produced a result. The string values
// are part of the JSON contract and must not change.
type FetchMethod string

const (
	MethodHTTP        FetchMethod = "httpx"
	MethodReadability FetchMethod = "trafilatura"
	MethodBrowserNoJS FetchMethod = "playwright-nojs"
	MethodBrowser     FetchMethod = "playwright"
)

// Valid reports whether m is one of the known fetch methods.
func (m FetchMethod) Valid() bool {
	switch m {
	case MethodHTTP, MethodReadability, MethodBrowserNoJS, MethodBrowser:
		return true
	default:
		return false
	}
}

// ResultFields lists the serialized field names of ExtractionResult in
// their canonical order.
var ResultFields = []string{
	"success", "url", "title", "body", "error",
	"fetch_method", "status_code", "content_length", "elapsed_ms",
}

// ExtractionResult is the outcome of one extraction call.
//
// Build it with NewSuccess or NewFailure only and treat it as read-only
// afterwards. Absent values are nil pointers and serialize as JSON null.
type ExtractionResult struct {
	Success       bool         `json:"success"`
	URL           string       `json:"url"`
	Title         *string      `json:"title"`
	Body          *string      `json:"body"`
	Error         *string      `json:"error"`
	FetchMethod   *FetchMethod `json:"fetch_method"`
	StatusCode    *int         `json:"status_code"`
	ContentLength int          `json:"content_length"`
	ElapsedMs     int64        `json:"elapsed_ms"`
}

// NewSuccess builds a successful result. ContentLength is the character
// count of body. A zero statusCode means no HTTP status was obtained.
func NewSuccess(url, title, body string, method FetchMethod, statusCode int, elapsed time.Duration) ExtractionResult {
	return ExtractionResult{
		Success:       true,
		URL:           url,
		Title:         &title,
		Body:          &body,
		FetchMethod:   &method,
		StatusCode:    optionalStatus(statusCode),
		ContentLength: utf8.RuneCountInString(body),
		ElapsedMs:     elapsedMs(elapsed),
	}
}

// NewFailure builds a failed result carrying a human-readable reason.
func NewFailure(url, reason string, statusCode int, elapsed time.Duration) ExtractionResult {
	return ExtractionResult{
		Success:    false,
		URL:        url,
		Error:      &reason,
		StatusCode: optionalStatus(statusCode),
		ElapsedMs:  elapsedMs(elapsed),
	}
}

// ToMap returns every field keyed by its serialized name, with absent
// values as nil. Iterate ResultFields for the canonical order.
func (r ExtractionResult) ToMap() map[string]any {
	m := make(map[string]any, len(ResultFields))
	m["success"] = r.Success
	m["url"] = r.URL
	m["title"] = derefString(r.Title)
	m["body"] = derefString(r.Body)
	m["error"] = derefString(r.Error)
	if r.FetchMethod != nil {
		m["fetch_method"] = string(*r.FetchMethod)
	} else {
		m["fetch_method"] = nil
	}
	if r.StatusCode != nil {
		m["status_code"] = *r.StatusCode
	} else {
		m["status_code"] = nil
	}
	m["content_length"] = r.ContentLength
	m["elapsed_ms"] = r.ElapsedMs
	return m
}

// FromMap is the inverse of ToMap. It also accepts maps produced by
// decoding ToJSON output, where numbers arrive as float64.
func FromMap(m map[string]any) (ExtractionResult, error) {
	var r ExtractionResult
	for _, key := range ResultFields {
		if _, ok := m[key]; !ok {
			return r, fmt.Errorf("result: missing field %q", key)
		}
	}

	success, ok := m["success"].(bool)
	if !ok {
		return r, fmt.Errorf("result: field \"success\" is %T, want bool", m["success"])
	}
	r.Success = success

	url, ok := m["url"].(string)
	if !ok {
		return r, fmt.Errorf("result: field \"url\" is %T, want string", m["url"])
	}
	r.URL = url

	var err error
	if r.Title, err = optionalStringField(m, "title"); err != nil {
		return r, err
	}
	if r.Body, err = optionalStringField(m, "body"); err != nil {
		return r, err
	}
	if r.Error, err = optionalStringField(m, "error"); err != nil {
		return r, err
	}

	method, err := optionalStringField(m, "fetch_method")
	if err != nil {
		return r, err
	}
	if method != nil {
		fm := FetchMethod(*method)
		if !fm.Valid() {
			return r, fmt.Errorf("result: unknown fetch_method %q", *method)
		}
		r.FetchMethod = &fm
	}

	if m["status_code"] != nil {
		code, err := intField(m, "status_code")
		if err != nil {
			return r, err
		}
		c := int(code)
		r.StatusCode = &c
	}

	length, err := intField(m, "content_length")
	if err != nil {
		return r, err
	}
	r.ContentLength = int(length)

	if r.ElapsedMs, err = intField(m, "elapsed_ms"); err != nil {
		return r, err
	}
	return r, nil
}

// ToJSON renders the result as a JSON object with fields in canonical
// order. Non-ASCII and HTML characters are written unescaped.
func (r ExtractionResult) ToJSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a struct of strings, ints and pointers to them cannot fail.
	_ = enc.Encode(r)
	return strings.TrimSuffix(buf.String(), "\n")
}

// ParseJSON decodes a document produced by ToJSON.
func ParseJSON(data []byte) (ExtractionResult, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return ExtractionResult{}, fmt.Errorf("result: decode json: %w", err)
	}
	return FromMap(m)
}

func optionalStatus(code int) *int {
	if code <= 0 {
		return nil
	}
	return &code
}

func elapsedMs(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optionalStringField(m map[string]any, key string) (*string, error) {
	v := m[key]
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("result: field %q is %T, want string", key, v)
	}
	return &s, nil
}

func intField(m map[string]any, key string) (int64, error) {
	switch v := m[key].(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("result: field %q is not an integer: %v", key, v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	default:
		return 0, fmt.Errorf("result: field %q is %T, want integer", key, v)
	}
}
