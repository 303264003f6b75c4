package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/Nomadcxx/albumdrop/internal/logging"
	"github.com/Nomadcxx/albumdrop/internal/watcher"
	"golang.org/x/sync/errgroup"
)

// Daemon runs the watcher, the periodic scanner and the health server
// together until the context is cancelled or one of them fails.
type Daemon struct {
	handler  *Handler
	watcher  *watcher.Watcher
	scanner  *PeriodicScanner
	server   *Server
	logger   *logging.Logger
	shutdown time.Duration
}

// NewDaemon assembles a Daemon. scanner and server may be nil.
func NewDaemon(handler *Handler, w *watcher.Watcher, scanner *PeriodicScanner, server *Server, logger *logging.Logger) *Daemon {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Daemon{
		handler:  handler,
		watcher:  w,
		scanner:  scanner,
		server:   server,
		logger:   logger,
		shutdown: 5 * time.Second,
	}
}

// Run blocks until ctx is done. The first component error cancels the rest.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.watcher.Watch(d.handler.DownloadsDir()); err != nil {
		return err
	}

	d.logger.Info("daemon", "albumdropd started",
		logging.F("downloads", d.handler.DownloadsDir()),
		logging.F("pattern", d.handler.Pattern().Name))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := d.watcher.Start(ctx); err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})

	if d.scanner != nil {
		g.Go(func() error {
			return d.scanner.Start(ctx)
		})
	}

	if d.server != nil {
		g.Go(d.server.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), d.shutdown)
			defer cancel()
			return d.server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		d.logger.Info("daemon", "Stopping albumdropd")
		d.handler.Shutdown()
		return d.watcher.Close()
	})

	err := g.Wait()
	d.logger.Info("daemon", "albumdropd stopped")
	return err
}
