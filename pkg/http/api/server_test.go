package api

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deploywatch/scanner-qualys/pkg/etc"
)

func TestServer_GracefulShutdown(t *testing.T) {
	server, err := NewServer(etc.API{
		Addr:         "127.0.0.1:0",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		IdleTimeout:  time.Second,
	}, http.NewServeMux())
	require.NoError(t, err)

	server.ListenAndServe()
	time.Sleep(100 * time.Millisecond)
	server.Shutdown()

	// A graceful shutdown must not be treated as a listen failure. The
	// serving goroutine would os.Exit(1) here and take the test binary
	// down with it.
	time.Sleep(200 * time.Millisecond)
}

func TestServer_TLSConfig(t *testing.T) {
	server, err := NewServer(etc.API{
		Addr:           "127.0.0.1:0",
		TLSCertificate: "cert.pem",
		TLSKey:         "key.pem",
	}, http.NewServeMux())
	require.NoError(t, err)
	require.NotNil(t, server.server.TLSConfig)
	require.Equal(t, uint16(tls.VersionTLS12), server.server.TLSConfig.MinVersion)
}
