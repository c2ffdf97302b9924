package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db          *BadgerDB
	integration interfaces.IntegrationStorage
	usage       interfaces.UsageStorage
	idea        interfaces.IdeaStorage
	run         interfaces.RunStorage
	job         interfaces.JobStorage
	content     interfaces.ContentStorage
	brand       interfaces.BrandStorage
	kv          interfaces.KeyValueStorage
	logger      arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:          db,
		integration: NewIntegrationStorage(db, logger),
		usage:       NewUsageStorage(db, logger),
		idea:        NewIdeaStorage(db, logger),
		run:         NewRunStorage(db, logger),
		job:         NewJobStorage(db, logger),
		content:     NewContentStorage(db, logger),
		brand:       NewBrandStorage(db, logger),
		kv:          NewKVStorage(db, logger),
		logger:      logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// IntegrationStorage returns the integration binding storage interface
func (m *Manager) IntegrationStorage() interfaces.IntegrationStorage {
	return m.integration
}

// UsageStorage returns the usage ledger storage interface
func (m *Manager) UsageStorage() interfaces.UsageStorage {
	return m.usage
}

// IdeaStorage returns the idea storage interface
func (m *Manager) IdeaStorage() interfaces.IdeaStorage {
	return m.idea
}

// RunStorage returns the discovery run storage interface
func (m *Manager) RunStorage() interfaces.RunStorage {
	return m.run
}

// JobStorage returns the queue job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// ContentStorage returns the generated content storage interface
func (m *Manager) ContentStorage() interfaces.ContentStorage {
	return m.content
}

// BrandStorage returns the brand storage interface
func (m *Manager) BrandStorage() interfaces.BrandStorage {
	return m.brand
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// DB returns the underlying BadgerDB wrapper (used by the queue manager)
func (m *Manager) DB() interface{} {
	return m.db
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
