// routes_serve.go - Server-Start und Lifecycle-Management
// Enthaelt: Serve() - startet den HTTP-Server fuer einen erstellten Filter
// Beim Beenden werden laufende Anfragen abgewartet, erst danach wird der
// Filter freigegeben.

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/vsmlrt/vstrt/envconfig"
	"github.com/vsmlrt/vstrt/trt"
	"github.com/vsmlrt/vstrt/version"
)

// Serve startet den HTTP-Server bis SIGINT/SIGTERM. Der Filter wird beim Beenden freigegeben.
func Serve(ln net.Listener, f *trt.Filter) error {
	// listen for a ctrl+c and free the filter
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, ln, f)
}

// serve laeuft bis ctx endet oder der Listener fehlschlaegt
func serve(ctx context.Context, ln net.Listener, f *trt.Filter) error {
	slog.Info("server config", "env", envconfig.Values())

	s := NewServer(ln.Addr(), f)

	h, err := s.GenerateRoutes()
	if err != nil {
		f.Free()
		return err
	}

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version), "filter", f.Options())
	srvr := &http.Server{Handler: h}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srvr.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down", "stats", f.Stats())
		err = srvr.Shutdown(context.Background())
		<-serveErr
	case err = <-serveErr:
		if serr := srvr.Shutdown(context.Background()); serr != nil {
			slog.Debug("shutdown", "error", serr)
		}
	}

	// Shutdown kehrt erst zurueck wenn alle Handler fertig sind
	f.Free()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
