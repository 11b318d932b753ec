package hrclient

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestBuilderRefusesReuse(t *testing.T) {
	b := New()
	if _, err := b.Build(); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second build to fail")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	if _, err := New().WithBaseURL("not a url").Build(); err == nil {
		t.Fatal("expected invalid base url to be rejected")
	}
}

func TestBuilderDoesNotMutateSuppliedHTTPClient(t *testing.T) {
	hc := &http.Client{Timeout: 3 * time.Second}
	c, err := New().WithHTTPClient(hc).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	if hc.Jar != nil {
		t.Fatal("caller's http.Client must not be modified")
	}
	if c.http.Jar == nil {
		t.Fatal("expected client copy to receive a cookie jar")
	}
	if c.http.Timeout != 3*time.Second {
		t.Fatalf("expected caller timeout kept, got %v", c.http.Timeout)
	}
}

func TestBuilderWithoutCookies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport.EnableCookies = false
	c, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()
	if c.http.Jar != nil {
		t.Fatal("expected no cookie jar")
	}
}

func TestBuildPerformsNoIO(t *testing.T) {
	// nothing listens on this address; Build and Restore on an empty store must still succeed
	c, err := New().WithBaseURL("http://127.0.0.1:1").Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()
	if found, err := c.Restore(context.Background()); err != nil || found {
		t.Fatalf("restore on empty memory store: found=%v err=%v", found, err)
	}
}

func TestEventSinkEnablesEvents(t *testing.T) {
	sink := NewChannelSink(4)
	c, err := New().WithEventSink(sink).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	c.SetCredential("T1")
	select {
	case ev := <-sink.Events():
		if ev.Type != EventCredentialSet || !ev.Success || ev.ID == "" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected credential_set event")
	}
}

func TestEventTypesFilterDelivery(t *testing.T) {
	sink := NewChannelSink(4)
	cfg := DefaultConfig()
	cfg.Events.Types = []string{EventCredentialCleared}
	c, err := New().WithConfig(cfg).WithEventSink(sink).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	c.SetCredential("T1")
	c.ClearCredential()
	c.Close()

	var got []string
	for len(sink.Events()) > 0 {
		got = append(got, (<-sink.Events()).Type)
	}
	if len(got) != 1 || got[0] != EventCredentialCleared {
		t.Fatalf("expected only credential_cleared, got %v", got)
	}
	if c.EventsDropped() != 0 {
		t.Fatalf("filtered events must not count as dropped, got %d", c.EventsDropped())
	}
}
