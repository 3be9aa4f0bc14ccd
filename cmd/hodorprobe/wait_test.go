package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWaitCommand_HonoursTimeoutFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"wait", "--url", srv.URL, "--timeout", "50ms", "--attempts", "1", "--delay", "0s"})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected the 50ms timeout to fail the slow health check, got output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "attempt 1/1") {
		t.Errorf("expected the failed attempt to be reported, got:\n%s", out.String())
	}
}
