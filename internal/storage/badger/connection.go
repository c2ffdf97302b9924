package badger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/praecohq/praeco/internal/common"
)

// Badger reclaims value-log space only when asked; sweep periodically so a
// long-running process does not grow without bound.
const gcInterval = 10 * time.Minute

// BadgerDB wraps one badgerhold store. All aggregate storages and the job
// queues share this single handle.
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	stopGC chan struct{}
}

// NewBadgerDB opens (and if configured, first wipes) the database at
// config.Path and starts the value-log GC sweep.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // arbor handles logging, silence badger's own

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	logger.Debug().Str("path", config.Path).Msg("Badger database initialized")

	db := &BadgerDB{
		store:  store,
		logger: logger,
		stopGC: make(chan struct{}),
	}
	go db.gcLoop()
	return db, nil
}

// Store returns the badgerhold store; Store().Badger() exposes the raw
// badger handle the queue manager needs.
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close stops the GC sweep and closes the database.
func (b *BadgerDB) Close() error {
	close(b.stopGC)
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

func (b *BadgerDB) gcLoop() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing worth compacting.
			if err := b.store.Badger().RunValueLogGC(0.5); err == nil {
				b.logger.Debug().Msg("Badger value log compacted")
			}
		}
	}
}
