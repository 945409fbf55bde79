package teneo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const engineReply = `{
  "status": 0,
  "sessionId": "sess-42",
  "output": {"text": "hello back", "link": "", "parameters": {"extensions": "{}"}}
}`

func TestSendInputNewSession(t *testing.T) {
	var gotPath, gotInput, gotViewtype, gotChannel string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotInput = r.PostFormValue("userinput")
		gotViewtype = r.PostFormValue("viewtype")
		gotChannel = r.PostFormValue("channel")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(engineReply))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	resp, err := c.SendInput(context.Background(), "", Input{Text: "hi", Channel: "facebook"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotPath != "/" {
		t.Errorf("path = %q, new session must not carry a jsessionid", gotPath)
	}
	if gotInput != "hi" || gotViewtype != "tieapi" || gotChannel != "facebook" {
		t.Errorf("form = userinput %q viewtype %q channel %q", gotInput, gotViewtype, gotChannel)
	}
	if resp.SessionID != "sess-42" {
		t.Errorf("session id = %q, want sess-42", resp.SessionID)
	}
	if resp.Output.Text != "hello back" {
		t.Errorf("output text = %q", resp.Output.Text)
	}
}

func TestSendInputContinuesSession(t *testing.T) {
	var gotURI string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.RequestURI
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(engineReply))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	if _, err := c.SendInput(context.Background(), "sess-41", Input{Text: "again"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotURI != "/;jsessionid=sess-41" {
		t.Errorf("request uri = %q, want /;jsessionid=sess-41", gotURI)
	}
}

func TestSendInputNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "engine down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	if _, err := c.SendInput(context.Background(), "", Input{Text: "hi"}); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestSendInputEngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": 1, "sessionId": "", "output": {}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	if _, err := c.SendInput(context.Background(), "", Input{Text: "hi"}); err == nil {
		t.Fatal("expected error on engine status 1")
	}
}

func TestSendInputTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, 2*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.SendInput(ctx, "", Input{Text: "hi"}); err == nil {
		t.Fatal("expected timeout error")
	}
}
