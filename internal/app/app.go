package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/broker"
	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/handlers"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	"github.com/praecohq/praeco/internal/pipelines/discovery"
	"github.com/praecohq/praeco/internal/pipelines/generation"
	"github.com/praecohq/praeco/internal/pipelines/media"
	"github.com/praecohq/praeco/internal/pipelines/research"
	"github.com/praecohq/praeco/internal/queue"
	"github.com/praecohq/praeco/internal/registry"
	"github.com/praecohq/praeco/internal/services/events"
	"github.com/praecohq/praeco/internal/services/scheduler"
	"github.com/praecohq/praeco/internal/sources"
	badgerstorage "github.com/praecohq/praeco/internal/storage/badger"
)

// App holds all application components and dependencies. Everything is
// wired here, once, at process start; no package keeps global state.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	Registry       *registry.Registry
	Broker         *broker.Service
	Events         *events.Hub
	LogStream      *events.LogStream
	Sources        map[string]interfaces.SourceClient

	Queues map[string]*queue.Manager
	pools  []*queue.WorkerPool

	Scheduler *scheduler.Scheduler

	// HTTP handlers
	APIHandler         *handlers.APIHandler
	IntegrationHandler *handlers.IntegrationHandler
	BrandHandler       *handlers.BrandHandler
	JobHandler         *handlers.JobHandler
	DataHandler        *handlers.DataHandler
	WSHandler          *handlers.WebSocketHandler
}

// New wires the full application from config.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	storageManager, err := badgerstorage.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager

	reg, err := registry.NewDefault()
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}
	a.Registry = reg

	a.Broker = broker.NewService(
		reg,
		storageManager.IntegrationStorage(),
		storageManager.UsageStorage(),
		storageManager.KeyValueStorage(),
		config,
		logger,
	)

	a.Events = events.NewHub(logger)

	a.LogStream = events.NewLogStream(a.Events, logger, config.Logging.MinEventLevel)
	a.LogStream.Start()
	logger.SetChannel("context", a.LogStream.Channel())

	a.Sources = map[string]interfaces.SourceClient{}
	for _, src := range []interfaces.SourceClient{
		sources.NewRSSSource(logger),
		sources.NewWebSource(logger),
	} {
		a.Sources[src.Name()] = src
	}

	if err := a.initQueues(); err != nil {
		storageManager.Close()
		return nil, err
	}

	a.Scheduler = scheduler.New(
		a.Queues[models.QueueDiscovery],
		storageManager.BrandStorage(),
		enqueueOptions(&config.Pipelines.Discovery),
		logger,
	)

	a.initHandlers()

	logger.Info().Msg("Application initialized")
	return a, nil
}

// initQueues builds one durable queue and one worker pool per pipeline,
// all over the storage manager's badger instance.
func (a *App) initQueues() error {
	db, ok := a.StorageManager.DB().(*badgerstorage.BadgerDB)
	if !ok {
		return fmt.Errorf("storage manager is not badger-backed (got %T)", a.StorageManager.DB())
	}
	raw := db.Store().Badger()

	jobs := a.StorageManager.JobStorage()
	brands := a.StorageManager.BrandStorage()
	ideas := a.StorageManager.IdeaStorage()
	visibility := a.Config.Queue.VisibilityTimeoutDuration()

	a.Queues = make(map[string]*queue.Manager, 4)
	for _, name := range []string{models.QueueDiscovery, models.QueueGeneration, models.QueueResearch, models.QueueMedia} {
		mgr, err := queue.NewManager(raw, jobs, name, visibility, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create %s queue: %w", name, err)
		}
		a.Queues[name] = mgr
	}

	discoveryWorker := discovery.NewWorker(
		a.Broker, brands, ideas,
		a.StorageManager.RunStorage(),
		a.Events,
		a.Sources,
		discovery.Options{
			MinScore:       a.Config.Discovery.MinScore,
			MaxIdeasPerDay: a.Config.Discovery.MaxIdeasPerDay,
		},
		a.Logger,
	)
	generationWorker := generation.NewWorker(a.Broker, brands, ideas, a.StorageManager.ContentStorage(), a.Logger)
	researchWorker := research.NewWorker(a.Broker, brands, ideas, a.Logger)
	mediaWorker := media.NewWorker(a.Broker, brands, a.StorageManager.ContentStorage(), a.Logger)

	type pipeline struct {
		name    string
		cfg     *common.PipelineConfig
		handler queue.Handler
	}
	for _, p := range []pipeline{
		{models.QueueDiscovery, &a.Config.Pipelines.Discovery, discoveryWorker.Handle},
		{models.QueueGeneration, &a.Config.Pipelines.Generation, generationWorker.Handle},
		{models.QueueResearch, &a.Config.Pipelines.Research, researchWorker.Handle},
		{models.QueueMedia, &a.Config.Pipelines.Media, mediaWorker.Handle},
	} {
		pool := queue.NewWorkerPool(a.Queues[p.name], jobs, a.Events, p.handler, queue.WorkerOptions{
			Concurrency:     p.cfg.Concurrency,
			RatePerMinute:   p.cfg.RatePerMinute,
			PollInterval:    a.Config.Queue.PollIntervalDuration(),
			RetainCompleted: a.Config.Queue.RetainCompleted,
			RetainFailed:    a.Config.Queue.RetainFailed,
		}, a.Logger)
		a.pools = append(a.pools, pool)
	}

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Config, a.Logger)
	a.IntegrationHandler = handlers.NewIntegrationHandler(a.Broker, a.StorageManager.IntegrationStorage(), a.Registry, a.Logger)
	a.BrandHandler = handlers.NewBrandHandler(a.StorageManager.BrandStorage(), a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.Queues, a.queueEnqueueOptions(), a.StorageManager.JobStorage(), a.Logger)
	a.DataHandler = handlers.NewDataHandler(
		a.StorageManager.IdeaStorage(),
		a.StorageManager.RunStorage(),
		a.StorageManager.ContentStorage(),
		a.Logger,
	)
	a.WSHandler = handlers.NewWebSocketHandler(a.Events, a.Logger)
}

func (a *App) queueEnqueueOptions() map[string]queue.EnqueueOptions {
	return map[string]queue.EnqueueOptions{
		models.QueueDiscovery:  enqueueOptions(&a.Config.Pipelines.Discovery),
		models.QueueGeneration: enqueueOptions(&a.Config.Pipelines.Generation),
		models.QueueResearch:   enqueueOptions(&a.Config.Pipelines.Research),
		models.QueueMedia:      enqueueOptions(&a.Config.Pipelines.Media),
	}
}

func enqueueOptions(cfg *common.PipelineConfig) queue.EnqueueOptions {
	return queue.EnqueueOptions{
		Attempts: cfg.Attempts,
		Backoff:  cfg.BackoffDuration(),
	}
}

// Start launches the worker pools and, when enabled, the discovery
// scheduler.
func (a *App) Start() error {
	for _, pool := range a.pools {
		pool.Start()
	}

	if a.Config.Pipelines.Discovery.ScheduleEnable {
		if err := a.Scheduler.Start(a.Config.Pipelines.Discovery.Schedule); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}
	return nil
}

// Stop shuts the pipelines down: scheduler first so nothing new is
// enqueued, then the pools drain their in-flight jobs.
func (a *App) Stop() {
	a.Scheduler.Stop()
	for _, pool := range a.pools {
		pool.Stop()
	}
	if a.LogStream != nil {
		a.LogStream.Stop()
	}
}

// Close releases everything Stop does not: the storage layer.
func (a *App) Close() error {
	if a.StorageManager != nil {
		return a.StorageManager.Close()
	}
	return nil
}
