package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure.local:3129", "kb.internal")

	tests := []struct {
		url  string
		want string
	}{
		{"http://example.com/a", "http://proxy.local:3128"},
		{"https://example.com/a", "http://secure.local:3129"},
		{"http://kb.internal/predict", ""},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(http.MethodGet, tt.url, nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		got, err := proxy(req)
		if err != nil {
			t.Fatalf("proxy(%s): %v", tt.url, err)
		}
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("proxy(%s) = %s, want direct", tt.url, got)
		case tt.want != "" && (got == nil || got.String() != tt.want):
			t.Errorf("proxy(%s) = %v, want %s", tt.url, got, tt.want)
		}
	}
}
