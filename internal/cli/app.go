package cli

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thomhuang/CepLookup/internal/lookup"
	"github.com/thomhuang/CepLookup/internal/platform/config"
	"github.com/thomhuang/CepLookup/internal/platform/logging"
	"github.com/thomhuang/CepLookup/internal/platform/otel"
	"github.com/thomhuang/CepLookup/internal/session"
	"github.com/thomhuang/CepLookup/internal/store"
	"github.com/thomhuang/CepLookup/internal/store/sqlite"
)

const (
	serviceName     = "ceplookup"
	shutdownTimeout = 5 * time.Second
)

// settings is the configuration after flags were applied on top of the environment.
type settings struct {
	cfg      config.Config
	scheme   string
	autoSave bool
	autoLoad bool
}

// app holds everything one command invocation needs.
type app struct {
	log      *logrus.Logger
	repo     *store.Repository
	ctrl     *session.Controller
	closers  []io.Closer
	shutdown func(context.Context) error
}

func newApp(ctx context.Context, s settings) (*app, error) {
	logger, logCloser, err := logging.New(logging.Options{Level: s.cfg.LogLevel, File: s.cfg.LogFile})
	if err != nil {
		return nil, err
	}
	a := &app{log: logger, closers: []io.Closer{logCloser}}

	shutdown, err := otel.Setup(ctx, serviceName, s.cfg.OTelEndpoint, s.cfg.OTelEnabled)
	if err != nil {
		// tracing is optional
		logger.WithError(err).Warn("could not set up tracing")
	}
	a.shutdown = shutdown

	scheme, err := store.SchemeByName(s.scheme)
	if err != nil {
		a.Close()
		return nil, err
	}

	var backend store.Backend = store.NewMemory()
	if s.cfg.StorePath != "" {
		db, err := sqlite.Open(ctx, s.cfg.StorePath)
		if err != nil {
			logger.WithError(err).WithField("path", s.cfg.StorePath).Error("could not open store, keeping addresses in memory")
		} else {
			backend = db
			a.closers = append(a.closers, db)
		}
	}
	a.repo = store.NewRepository(backend, scheme, logger)

	client := lookup.New(s.cfg.LookupURL, lookup.WithLogger(logger), lookup.WithTimeout(s.cfg.LookupTimeout))
	a.ctrl = session.New(client, a.repo, logger, session.Options{
		AutoSave: s.autoSave,
		AutoLoad: s.autoLoad,
		Capacity: scheme.Capacity(),
	})

	logger.WithFields(logrus.Fields{
		"variant":   s.cfg.Variant,
		"scheme":    scheme.Name(),
		"auto_save": s.autoSave,
		"auto_load": s.autoLoad,
	}).Debug("session ready")
	return a, nil
}

// Close flushes traces and releases the store and log file, in reverse order.
func (a *app) Close() {
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.shutdown(ctx); err != nil {
			a.log.WithError(err).Warn("otel shutdown")
		}
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}
