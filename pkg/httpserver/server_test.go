package httpserver_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/httpserver"
)

func startServer(t *testing.T, handler http.Handler, opts ...httpserver.Option) (*httpserver.Server, context.CancelFunc, <-chan error) {
	t.Helper()
	srv := httpserver.New(append([]httpserver.Option{httpserver.WithAddr("127.0.0.1:0")}, opts...)...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, handler) }()

	select {
	case <-srv.Ready():
	case err := <-done:
		require.FailNow(t, "server exited early", "%v", err)
	case <-time.After(time.Second):
		require.FailNow(t, "server not ready")
	}
	return srv, cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		require.FailNow(t, "run did not return")
		return nil
	}
}

func TestRunServesUntilCanceled(t *testing.T) {
	t.Parallel()

	srv, cancel, done := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}), httpserver.WithShutdownTimeout(100*time.Millisecond))

	resp, err := http.Get("http://" + srv.Addr())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "ok", string(body))

	cancel()
	require.NoError(t, waitDone(t, done))
	assert.NoError(t, srv.Shutdown(context.Background()), "shutdown after run is a no-op")
}

func TestRunBindFailure(t *testing.T) {
	t.Parallel()

	err := httpserver.New(httpserver.WithAddr(":invalid")).Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestRunTwice(t *testing.T) {
	t.Parallel()

	srv, _, _ := startServer(t, http.NewServeMux())
	err := srv.Run(context.Background(), http.NewServeMux())
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	assert.NoError(t, httpserver.New().Shutdown(context.Background()), "not started")

	srv, _, done := startServer(t, http.NewServeMux(), httpserver.WithShutdownTimeout(50*time.Millisecond))
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, waitDone(t, done))
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	assert.Empty(t, httpserver.Config{}.Options())
	assert.Len(t, httpserver.Config{Addr: ":9000", ReadTimeout: time.Second, ShutdownTimeout: time.Second}.Options(), 3)
}

func TestOptionValidation(t *testing.T) {
	t.Parallel()

	for name, opt := range map[string]func() httpserver.Option{
		"addr":        func() httpserver.Option { return httpserver.WithAddr("") },
		"read":        func() httpserver.Option { return httpserver.WithReadTimeout(-time.Second) },
		"read header": func() httpserver.Option { return httpserver.WithReadHeaderTimeout(0) },
		"write":       func() httpserver.Option { return httpserver.WithWriteTimeout(-time.Second) },
		"idle":        func() httpserver.Option { return httpserver.WithIdleTimeout(0) },
		"shutdown":    func() httpserver.Option { return httpserver.WithShutdownTimeout(-time.Second) },
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, func() { httpserver.New(opt()) })
		})
	}

	assert.NotPanics(t, func() { httpserver.New(httpserver.WithLogger(nil)) })
}
