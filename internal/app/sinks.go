package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jacksonchui/Social-Media-Intervention/internal/config"
	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
	"github.com/jacksonchui/Social-Media-Intervention/internal/store"
)

// ErrNoReadableStore is returned when sessions must be read back but
// neither STORE_BACKEND nor YAML_EXPORT_DIR is configured.
var ErrNoReadableStore = errors.New("no readable session store configured")

// Persistence is every configured destination for finished sessions.
type Persistence struct {
	Sink store.MultiSink

	// lister is the store sessions are read back from; nil when only
	// write-only sinks are configured.
	lister  store.Lister
	closers []func() error
}

var _ session.Sink = (*Persistence)(nil)

// OpenPersistence opens the SQL store, ClickHouse, the YAML export
// directory and the MQTT session topic, as configured. publisher may be
// nil when MQTT_PUBLISH is off. A nil logger discards output.
func OpenPersistence(ctx context.Context, cfg *config.Config, publisher mqtt.Client, logger *slog.Logger) (*Persistence, error) {
	logger = orDiscard(logger)
	p := &Persistence{}

	backend, err := store.ParseBackend(cfg.StoreBackend)
	if err != nil {
		return nil, err
	}
	if backend != store.NoneBackend {
		sqlStore, err := store.NewSQLStore(ctx, backend, cfg.StoreDSN)
		if err != nil {
			return nil, err
		}
		p.add(sqlStore, sqlStore.Close)
		p.lister = sqlStore
		logger.Info("saving sessions", "backend", string(backend))
	}

	if cfg.YAMLExportDir != "" {
		yamlStore, err := store.NewYAMLStore(cfg.YAMLExportDir)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.add(yamlStore, nil)
		if p.lister == nil {
			p.lister = yamlStore
		}
		logger.Info("exporting sessions", "dir", cfg.YAMLExportDir)
	}

	if cfg.ClickHouseAddr != "" {
		ch, err := store.NewClickHouseSink(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.add(ch, ch.Close)
		logger.Info("sending session analytics to ClickHouse", "addr", cfg.ClickHouseAddr)
	}

	if publisher != nil {
		p.add(store.NewMQTTSink(publisher, cfg.TopicSession), nil)
	}

	return p, nil
}

func (p *Persistence) add(s session.Sink, closeFn func() error) {
	p.Sink = append(p.Sink, s)
	if closeFn != nil {
		p.closers = append(p.closers, closeFn)
	}
}

func (p *Persistence) Save(ctx context.Context, m session.Model) error {
	return p.Sink.Save(ctx, m)
}

// Lister returns the store sessions are read back from.
func (p *Persistence) Lister() (store.Lister, error) {
	if p.lister == nil {
		return nil, ErrNoReadableStore
	}
	return p.lister, nil
}

// Close closes every opened store.
func (p *Persistence) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
