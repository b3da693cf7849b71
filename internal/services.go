package internal

import (
	"fmt"
	"log/slog"

	"github.com/starford/anchorage/internal/anchors"
	"github.com/starford/anchorage/internal/linkgraph"
	"github.com/starford/anchorage/internal/linking"
	"github.com/starford/anchorage/internal/links"
	"github.com/starford/anchorage/internal/nodeservice"
	"github.com/starford/anchorage/internal/store"
	"github.com/starford/anchorage/internal/store/badger"
	"github.com/starford/anchorage/internal/store/sqlite"
)

// openStore opens the backend selected by cfg.Driver.
func openStore(cfg StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case StoreDriverBadger:
		db, err := badger.Open(badger.Config{
			Path:       cfg.Badger.Path,
			InMemory:   cfg.Badger.InMemory,
			SyncWrites: cfg.Badger.SyncWrites,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return db, nil
	case StoreDriverSQLite, "":
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// services is the domain layer shared by the HTTP and MCP surfaces.
type services struct {
	session *linking.Session
	nodes   *nodeservice.Service
	anchors *anchors.Registry
	links   *links.Registry
	linking *linking.Controller
	graph   *linkgraph.Builder
}

// newServices wires the registries over st. Every committed mutation bumps
// the session version and is then reported to onChange; every completed link
// is reported to refresh. Either hook may be nil.
func newServices(st store.Store, logger *slog.Logger, onChange func(event, id string, version uint64), refresh func(version uint64)) *services {
	session := linking.NewSession()
	notify := func(event, id string) {
		v := session.Bump()
		if onChange != nil {
			onChange(event, id, v)
		}
	}
	a := anchors.New(st, anchors.WithNodes(st), anchors.WithLogger(logger), anchors.WithNotify(notify))
	l := links.New(st, a, st, links.WithLogger(logger), links.WithNotify(notify))
	ctrlOpts := []linking.Option{linking.WithLogger(logger)}
	if refresh != nil {
		ctrlOpts = append(ctrlOpts, linking.WithRefresh(refresh))
	}
	return &services{
		session: session,
		nodes:   nodeservice.NewService(st, a, l, nodeservice.WithLogger(logger), nodeservice.WithNotify(notify)),
		anchors: a,
		links:   l,
		linking: linking.NewController(a, l, session, ctrlOpts...),
		graph:   linkgraph.NewBuilder(a, l, logger),
	}
}
