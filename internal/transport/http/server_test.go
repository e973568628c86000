package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServer_ServeDrainsInFlightRequests(t *testing.T) {
	req := require.New(t)

	started := make(chan struct{})
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
		_, _ = w.Write([]byte("done"))
	})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	srv := New(Config{ShutdownTimeout: 5 * time.Second}, h)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, lis) }()

	// Given a request in flight
	type result struct {
		body string
		err  error
	}
	got := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + lis.Addr().String() + "/")
		if err != nil {
			got <- result{err: err}
			return
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		got <- result{body: string(b), err: err}
	}()
	<-started

	// When shutdown begins
	cancel()

	// Then Serve waits for the request
	select {
	case <-served:
		t.Fatal("Serve returned before the in-flight request finished")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	r := <-got
	req.NoError(r.err)
	req.Equal("done", r.body)
	req.NoError(<-served)
}
