package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleText(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"is_song\":false}"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAi("key", "test-model", server.URL)
	out, err := client.HandleText(context.Background(), "hi")
	if err != nil {
		t.Fatalf("HandleText failed: %v", err)
	}
	if out != `{"is_song":false}` || gotModel != "test-model" {
		t.Errorf("out=%q model=%q", out, gotModel)
	}
}
