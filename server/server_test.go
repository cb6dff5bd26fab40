package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/minios-linux/lehrer/pipeline"
	"github.com/minios-linux/lehrer/translate"
)

type echoTranslator struct{ fail bool }

func (e echoTranslator) Name() string { return "echo" }

func (e echoTranslator) Translate(_ context.Context, text string, pair translate.LangPair) (string, error) {
	if e.fail {
		return "", errors.New("quota exceeded")
	}
	return pair.Target + ":" + text, nil
}

func newTestServer(t *testing.T, tr translate.Translator, opts Options) *httptest.Server {
	t.Helper()
	opts.Runner = &pipeline.Runner{
		Orchestrator: &translate.Orchestrator{Translator: tr},
	}
	opts.Logger = zerolog.Nop()
	srv := httptest.NewServer(New(opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, contentType, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, contentType, strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func TestRenderPlainText(t *testing.T) {
	srv := newTestServer(t, echoTranslator{}, Options{})

	resp, body := post(t, srv.URL+"/v1/render", "text/plain", "de\nuk\n\nGuten Tag.\n\nGood day.")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var res pipeline.Result
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, body)
	}
	if res.Options.Source != "de" || res.Options.Target != "uk" || res.Translated {
		t.Fatalf("result = %#v", res)
	}
	if len(res.Rows) != 1 || res.Rows[0].Translation != "Good day." {
		t.Fatalf("rows = %#v", res.Rows)
	}
}

func TestRenderJSONWithSeparator(t *testing.T) {
	srv := newTestServer(t, echoTranslator{}, Options{})

	resp, body := post(t, srv.URL+"/v1/render", "application/json",
		`{"block":"en\n\n\nEins.\n\nZwei.","separator":"double"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var res pipeline.Result
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if !res.Translated || len(res.Rows) != 2 || res.Rows[1].Translation != "en:Zwei." {
		t.Fatalf("result = %#v", res)
	}
}

func TestRenderHTMLFormat(t *testing.T) {
	srv := newTestServer(t, echoTranslator{}, Options{})

	resp, body := post(t, srv.URL+"/v1/render?format=html", "text/plain", "uk\n\nHallo.")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), `<td class="input-text">uk:Hallo.</td>`) {
		t.Fatalf("body = %s", body)
	}
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name        string
		tr          translate.Translator
		path        string
		contentType string
		body        string
		status      int
	}{
		{"translation failure", echoTranslator{fail: true}, "/v1/render", "text/plain", "Hallo.", http.StatusBadGateway},
		{"bad separator", echoTranslator{}, "/v1/render", "application/json", `{"block":"x","separator":"triple"}`, http.StatusBadRequest},
		{"bad json", echoTranslator{}, "/v1/render", "application/json", `{"block":`, http.StatusBadRequest},
		{"unknown field", echoTranslator{}, "/v1/render", "application/json", `{"text":"x"}`, http.StatusBadRequest},
		{"bad format", echoTranslator{}, "/v1/render?format=pdf", "text/plain", "x", http.StatusBadRequest},
		{"too large", echoTranslator{}, "/v1/render", "text/plain", strings.Repeat("a", 64), http.StatusRequestEntityTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, tc.tr, Options{MaxBodyBytes: 32})
			resp, body := post(t, srv.URL+tc.path, tc.contentType, tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tc.status, body)
			}
			var e errorResponse
			if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
				t.Fatalf("error body = %s (%v)", body, err)
			}
		})
	}
}

func TestSentences(t *testing.T) {
	srv := newTestServer(t, echoTranslator{}, Options{})

	_, body := post(t, srv.URL+"/v1/sentences", "text/plain", "Eins. Zwei!")
	var got []string
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "Eins." || got[1] != "Zwei!" {
		t.Fatalf("sentences = %#v", got)
	}

	_, body = post(t, srv.URL+"/v1/sentences", "application/json; charset=utf-8", `{"text":""}`)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("empty sentences = %s", body)
	}
}

func TestHealthAndCORS(t *testing.T) {
	srv := newTestServer(t, echoTranslator{}, Options{AllowedOrigins: []string{"app://obsidian.md"}})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("Origin", "app://obsidian.md")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var health map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "ok" || health["translator"] != "echo" {
		t.Fatalf("health = %#v", health)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "app://obsidian.md" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(Options{Logger: zerolog.Nop()}).Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
