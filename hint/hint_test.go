package hint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wfunc/guessgame/logger"
)

func init() {
	logger.Init()
}

func TestFallback_TabulatedTarget(t *testing.T) {
	got := Fallback(100)
	if got != "You can't go any higher in this game." {
		t.Errorf("Unexpected fallback for 100: %q", got)
	}
}

func TestFallback_UntabulatedTarget(t *testing.T) {
	got := Fallback(83)
	if got != genericFallback {
		t.Errorf("Expected generic fallback for untabulated target, got %q", got)
	}
}

func TestFallback_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if Fallback(42) != Fallback(42) {
			t.Fatal("Fallback must be deterministic")
		}
	}
}

func TestStaticProvider(t *testing.T) {
	p := StaticProvider{}
	if p.Hint(context.Background(), 100) != Fallback(100) {
		t.Error("StaticProvider should return the fallback entry")
	}
}

func TestHTTPProvider_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output_text": "It rhymes with heaven."}`))
	}))
	defer server.Close()

	p := NewHTTPProvider(HTTPConfig{URL: server.URL, APIKey: "test-key", Model: "test-model"})

	got := p.Hint(context.Background(), 7)
	if got != "It rhymes with heaven." {
		t.Errorf("Expected generated hint, got %q", got)
	}
}

func TestHTTPProvider_NestedOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": [{"content": [{"text": "Think of a famous detective's address."}]}]}`))
	}))
	defer server.Close()

	p := NewHTTPProvider(HTTPConfig{URL: server.URL})

	got := p.Hint(context.Background(), 21)
	if got != "Think of a famous detective's address." {
		t.Errorf("Expected nested output text, got %q", got)
	}
}

func TestHTTPProvider_ProviderFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewHTTPProvider(HTTPConfig{URL: server.URL})

	if got := p.Hint(context.Background(), 100); got != Fallback(100) {
		t.Errorf("Expected fallback entry for 100 on provider failure, got %q", got)
	}

	if got := p.Hint(context.Background(), 83); !strings.Contains(got, "between 1 and 100") {
		t.Errorf("Expected generic fallback on provider failure, got %q", got)
	}
}

func TestHTTPProvider_UnreachableFallsBack(t *testing.T) {
	// 端口未监听，连接必然失败
	p := NewHTTPProvider(HTTPConfig{URL: "http://127.0.0.1:1/responses"})

	if got := p.Hint(context.Background(), 42); got != Fallback(42) {
		t.Errorf("Expected fallback on unreachable provider, got %q", got)
	}
}

func TestHTTPProvider_EmptyBodyFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p := NewHTTPProvider(HTTPConfig{URL: server.URL})

	if got := p.Hint(context.Background(), 55); got != genericFallback {
		t.Errorf("Expected generic fallback on empty output, got %q", got)
	}
}
