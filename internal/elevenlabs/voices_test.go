package elevenlabs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func voicesServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Error("Missing api key header")
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestVoiceRegistry_Refresh(t *testing.T) {
	srv := voicesServer(t, `{"voices":[
		{"voice_id":"v1","name":"Rachel","category":"premade"},
		{"voice_id":"v2","name":"Adam","category":"premade"}
	]}`, http.StatusOK)
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", nil, zerolog.Nop())
	reg := NewVoiceRegistry(client)

	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if reg.Len() != 2 {
		t.Fatalf("Expected 2 voices, got %d", reg.Len())
	}

	// Name lookup is case-insensitive.
	v, ok := reg.Get("rachel")
	if !ok || v.ID != "v1" {
		t.Errorf("Expected to find Rachel by lowercase name, got (%+v, %v)", v, ok)
	}

	if _, ok := reg.GetByID("v2"); !ok {
		t.Error("Expected to find v2 by ID")
	}
	if _, ok := reg.Get("nobody"); ok {
		t.Error("Unknown name must not resolve")
	}

	list := reg.List()
	if len(list) != 2 || list[0].Name != "Adam" || list[1].Name != "Rachel" {
		t.Errorf("Expected name-sorted catalog, got %+v", list)
	}
}

func TestVoiceRegistry_RefreshErrorKeepsCatalog(t *testing.T) {
	srv := voicesServer(t, `{"voices":[{"voice_id":"v1","name":"Rachel"}]}`, http.StatusOK)
	client := NewClient(srv.URL, "test-key", nil, zerolog.Nop())
	reg := NewVoiceRegistry(client)

	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	srv.Close()

	// The endpoint is gone now; the previous catalog must survive.
	if err := reg.Refresh(context.Background()); err == nil {
		t.Fatal("Expected refresh against a dead endpoint to fail")
	}
	if reg.Len() != 1 {
		t.Errorf("Expected previous catalog to be kept, got %d voices", reg.Len())
	}
}

func TestVoiceRegistry_EmptyBeforeRefresh(t *testing.T) {
	client := NewClient("http://unused", "test-key", nil, zerolog.Nop())
	reg := NewVoiceRegistry(client)

	if reg.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", reg.Len())
	}
	if _, ok := reg.Get("anything"); ok {
		t.Error("Empty registry must not resolve names")
	}
}
