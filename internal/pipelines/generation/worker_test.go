package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	"github.com/praecohq/praeco/internal/queue"
	badgerstorage "github.com/praecohq/praeco/internal/storage/badger"
)

const fakeResponse = `TITLE: Shipping Faster Without Breaking Things
EXCERPT: How small batches and feature flags cut our incident rate.
BODY:
# Shipping Faster Without Breaking Things

We moved to small batches last year. Deploys got boring. Incidents went down.

Feature flags carried most of the weight. Every risky change ships dark first.`

type fakeTextClient struct {
	err error
}

func (c *fakeTextClient) GenerateText(ctx context.Context, prompt string, opts interfaces.TextOptions) (*interfaces.TextResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &interfaces.TextResult{
		Text:  fakeResponse,
		Model: "fake-model-1",
		Usage: interfaces.TokenUsage{Input: 200, Output: 300, Total: 500},
	}, nil
}

type fakeBroker struct {
	mu         sync.Mutex
	binding    *models.IntegrationBinding
	client     interfaces.ProviderClient
	resolveErr error
	usage      []interfaces.UsageRecord
}

func (b *fakeBroker) Resolve(ctx context.Context, ownerID string, cap models.Capability, brandID *string, preferred string) (*models.IntegrationBinding, error) {
	if b.resolveErr != nil {
		return nil, b.resolveErr
	}
	return b.binding, nil
}

func (b *fakeBroker) CheckHealth(ctx context.Context, binding *models.IntegrationBinding) bool {
	return true
}

func (b *fakeBroker) TrackUsage(ctx context.Context, bindingID string, record interfaces.UsageRecord) {
	b.mu.Lock()
	b.usage = append(b.usage, record)
	b.mu.Unlock()
}

func (b *fakeBroker) GetClient(ctx context.Context, binding *models.IntegrationBinding) (interfaces.ProviderClient, error) {
	return b.client, nil
}

func (b *fakeBroker) Test(ctx context.Context, bindingID string) interfaces.TestResult {
	return interfaces.TestResult{Success: true}
}

func (b *fakeBroker) records() []interfaces.UsageRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]interfaces.UsageRecord(nil), b.usage...)
}

type generationEnv struct {
	sm      interfaces.StorageManager
	broker  *fakeBroker
	client  *fakeTextClient
	enqueue func(payload map[string]interface{}) *models.QueueJob
}

func newGenerationEnv(t *testing.T) *generationEnv {
	t.Helper()
	logger := arbor.NewLogger()

	sm, err := badgerstorage.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err, "failed to open storage")
	t.Cleanup(func() { sm.Close() })

	db := sm.DB().(*badgerstorage.BadgerDB)
	mgr, err := queue.NewManager(db.Store().Badger(), sm.JobStorage(), models.QueueGeneration, time.Minute, logger)
	require.NoError(t, err, "failed to create queue")

	client := &fakeTextClient{}
	broker := &fakeBroker{
		binding: &models.IntegrationBinding{ID: "int-1", ProviderID: "anthropic"},
		client:  client,
	}

	worker := NewWorker(broker, sm.BrandStorage(), sm.IdeaStorage(), sm.ContentStorage(), logger)

	pool := queue.NewWorkerPool(mgr, sm.JobStorage(), nil, worker.Handle, queue.WorkerOptions{
		Concurrency:  1,
		PollInterval: 10 * time.Millisecond,
	}, logger)
	pool.Start()
	t.Cleanup(pool.Stop)

	env := &generationEnv{sm: sm, broker: broker, client: client}
	env.enqueue = func(payload map[string]interface{}) *models.QueueJob {
		job := models.NewQueueJob(models.QueueGeneration, "", payload)
		require.NoError(t, mgr.Enqueue(context.Background(), job, queue.EnqueueOptions{Attempts: 1}))
		return job
	}
	return env
}

func (e *generationEnv) waitTerminal(t *testing.T, jobID string) *models.QueueJob {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := e.sm.JobStorage().Get(context.Background(), jobID)
		if err == nil && job.Status.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never finished", jobID)
	return nil
}

func seedBrandAndIdea(t *testing.T, sm interfaces.StorageManager) (*models.Brand, *models.Idea) {
	t.Helper()
	ctx := context.Background()

	brand := &models.Brand{
		ID: "brand-1", OwnerID: "owner-1", Name: "Acme",
		Voice:    "direct, no fluff",
		Audience: "engineering leads",
	}
	require.NoError(t, sm.BrandStorage().Save(ctx, brand))

	idea := &models.Idea{
		ID: "idea-1", BrandID: brand.ID, Source: "rss", SourceID: "src-1",
		Title:       "Shipping faster without breaking things",
		Description: "Small batch deploys and feature flags.",
		Keywords:    []string{"deploys", "feature flags"},
		ContentType: "blog_post",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, sm.IdeaStorage().Save(ctx, idea))
	return brand, idea
}

func TestGenerationPersistsContent(t *testing.T) {
	env := newGenerationEnv(t)
	brand, idea := seedBrandAndIdea(t, env.sm)

	job := env.enqueue(map[string]interface{}{"brand_id": brand.ID, "idea_id": idea.ID})
	done := env.waitTerminal(t, job.ID)
	require.Equal(t, models.JobCompleted, done.Status, "job error: %s", done.Error)

	pieces, err := env.sm.ContentStorage().ListForBrand(context.Background(), brand.ID, 10)
	require.NoError(t, err)
	require.Len(t, pieces, 1)

	piece := pieces[0]
	assert.Equal(t, "Shipping Faster Without Breaking Things", piece.Title)
	assert.Equal(t, "How small batches and feature flags cut our incident rate.", piece.Excerpt)
	assert.Contains(t, piece.Body, "Feature flags carried most of the weight.")
	assert.Equal(t, idea.ID, piece.IdeaID)
	assert.Equal(t, job.ID, piece.JobID)
	assert.Equal(t, "anthropic", piece.Provider)
	assert.Equal(t, "fake-model-1", piece.Model)
	assert.Equal(t, models.ContentDraft, piece.Status)
	assert.Equal(t, wordCount(piece.Body), piece.WordCount)
	// Title and excerpt both present.
	assert.InDelta(t, 100, piece.Quality.Structure, 0.01)
	assert.Greater(t, piece.Quality.Overall, 0.0)

	require.NotNil(t, done.Result)
	assert.Equal(t, piece.ID, done.Result["content_id"])

	records := env.broker.records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
	assert.Equal(t, "text_generation", records[0].Operation)
	assert.Equal(t, 500, records[0].Units)
	assert.Equal(t, job.ID, records[0].JobID)
}

func TestGenerationProviderFailure(t *testing.T) {
	env := newGenerationEnv(t)
	brand, idea := seedBrandAndIdea(t, env.sm)
	env.client.err = errors.New("rate limited")

	job := env.enqueue(map[string]interface{}{"brand_id": brand.ID, "idea_id": idea.ID})
	done := env.waitTerminal(t, job.ID)

	assert.Equal(t, models.JobFailed, done.Status)
	assert.Contains(t, done.Error, "text generation failed")

	// Failures still hit the usage ledger.
	records := env.broker.records()
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.Equal(t, "rate limited", records[0].ErrorMessage)

	pieces, err := env.sm.ContentStorage().ListForBrand(context.Background(), brand.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, pieces)
}

func TestGenerationNoProvider(t *testing.T) {
	env := newGenerationEnv(t)
	brand, idea := seedBrandAndIdea(t, env.sm)
	env.broker.resolveErr = errors.New("no healthy binding for text_generation")

	job := env.enqueue(map[string]interface{}{"brand_id": brand.ID, "idea_id": idea.ID})
	done := env.waitTerminal(t, job.ID)

	assert.Equal(t, models.JobFailed, done.Status)
	assert.Contains(t, done.Error, "no text provider available")
	assert.Empty(t, env.broker.records())
}

func TestGenerationMissingPayload(t *testing.T) {
	env := newGenerationEnv(t)

	job := env.enqueue(map[string]interface{}{"brand_id": "brand-1"})
	done := env.waitTerminal(t, job.ID)

	assert.Equal(t, models.JobFailed, done.Status)
	assert.Contains(t, done.Error, "missing brand_id or idea_id")
}
