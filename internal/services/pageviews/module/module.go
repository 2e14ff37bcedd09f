// Package module wires the pageviews service from configuration
package module

import (
	"context"

	"pageviews/internal/adapters/columnar/clickhouse"
	"pageviews/internal/adapters/ingest/dumps"
	"pageviews/internal/core/version"
	"pageviews/internal/modkit"
	perr "pageviews/internal/platform/errors"
	"pageviews/internal/platform/validate"
	dom "pageviews/internal/services/pageviews/domain"
	"pageviews/internal/services/pageviews/service"
)

// Ports exposed by the pageviews module
type Ports struct {
	Runner dom.RunnerPort
	Opener dom.OpenerPort
}

// Module implements the pageviews service module
type Module struct {
	deps  modkit.Deps
	opts  Options
	name  string
	ports Ports
}

// New constructs the module; modkit.WithPorts(dom.OpenerPort) replaces the HTTP fetcher
func New(deps modkit.Deps, mopts ...modkit.Option) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := validate.Struct(opts, perr.ErrorCodeInvalidArgument); err != nil {
		return nil, perr.WithOp(err, "pageviews.module")
	}
	b := modkit.Build(mopts...)

	opener, ok := modkit.PortsAs[dom.OpenerPort](b)
	if !ok {
		opener = newOpener(opts)
	}
	svc := service.New(opener, service.Config{
		Unquote:     opts.Unquote,
		Compression: opts.Compression,
	})

	name := b.Name
	if name == "" {
		name = "pageviews"
	}
	m := &Module{deps: deps, opts: opts, name: name}
	m.ports = Ports{Runner: svc, Opener: opener}
	return m, nil
}

func newOpener(opts Options) dom.OpenerPort {
	f := dumps.NewHTTPFetcher(opts.HTTPTimeout, opts.UserAgent)
	if opts.CacheDir == "" {
		return f
	}
	return dumps.NewCachedFetcher(opts.CacheDir, f, dumps.WithRetention(opts.CacheMaxAge, opts.CacheMaxBytes))
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.name }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// HourURL returns the dump URL for an hour under the configured base
func (m *Module) HourURL(h dumps.HourRef) string { return dumps.URLForHour(m.opts.BaseURL, h) }

// OpenClickHouse connects the ClickHouse sink described by PV_CLICKHOUSE_*
func (m *Module) OpenClickHouse(ctx context.Context, role string) (*clickhouse.Sink, error) {
	if m.opts.ClickHouse.DSN == "" {
		return nil, perr.WithField(perr.InvalidArgf("PV_CLICKHOUSE_DSN is not set"), "dsn")
	}
	return clickhouse.Open(ctx, clickhouse.Config{
		DSN:         m.opts.ClickHouse.DSN,
		Table:       m.opts.ClickHouse.Table,
		CreateTable: m.opts.ClickHouse.CreateTable,
		Role:        role,
		Version:     version.Info("pageviews").Version,
	})
}
