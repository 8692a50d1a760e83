package main

import (
	"net/http"
	"testing"
	"time"

	appconfig "github.com/wolfman30/workshop-concierge/internal/config"
)

func TestNewServer(t *testing.T) {
	h := http.NewServeMux()
	srv := newServer(&appconfig.Config{Port: "9090"}, h)

	if srv.Addr != ":9090" {
		t.Fatalf("expected :9090, got %s", srv.Addr)
	}
	if srv.Handler != h {
		t.Fatalf("expected handler to be wired")
	}
	if srv.WriteTimeout != 0 {
		t.Fatalf("write timeout must stay unset for the activity stream, got %v", srv.WriteTimeout)
	}
	if srv.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected read timeout %v", srv.ReadTimeout)
	}
}
