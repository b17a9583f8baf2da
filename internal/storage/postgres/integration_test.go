//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"content_syncer/internal/domain"
	"content_syncer/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_sources.up.sql"),
			filepath.Join(migrationsPath, "002_create_content.up.sql"),
			filepath.Join(migrationsPath, "003_create_keywords.up.sql"),
			filepath.Join(migrationsPath, "004_create_content_vectors.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content_keywords")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM keywords")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content_vectors")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM sources")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) insertSource(id string) {
	_, err := s.db.ExecContext(s.ctx, `
		INSERT INTO sources (id, type, external_id, name, active, metadata)
		VALUES ($1, 'telegram', $2, 'Test Channel', TRUE, '{"username": "channelname"}')
	`, id, "chan-"+id)
	s.Require().NoError(err)
}

func (s *PostgresIntegrationSuite) TestSourceStore_Get() {
	s.insertSource("src-1")
	store := NewSourceStore(s.db)

	source, err := store.Get(s.ctx, "src-1")
	s.NoError(err)
	s.Equal("src-1", source.ID)
	s.Equal(domain.SourceTypeTelegram, source.Type)
	s.Equal("chan-src-1", source.ExternalID)
	s.Equal("channelname", source.Metadata.Username)
	s.Equal("channelname", source.Peer())
	s.True(source.Active)
}

func (s *PostgresIntegrationSuite) TestSourceStore_Get_NotFound() {
	store := NewSourceStore(s.db)

	_, err := store.Get(s.ctx, "missing")
	s.ErrorIs(err, domain.ErrSourceNotFound)
}

func (s *PostgresIntegrationSuite) TestSourceStore_ListActive() {
	s.insertSource("src-1")
	s.insertSource("src-2")
	_, err := s.db.ExecContext(s.ctx, `
		INSERT INTO sources (id, type, external_id, active) VALUES ('src-off', 'telegram', 'chan-off', FALSE)
	`)
	s.Require().NoError(err)

	store := NewSourceStore(s.db)

	sources, err := store.ListActive(s.ctx)
	s.NoError(err)
	s.Len(sources, 2)
}

func (s *PostgresIntegrationSuite) TestSourceStore_TouchLastSync() {
	s.insertSource("src-1")
	store := NewSourceStore(s.db)

	ts := time.Now().Truncate(time.Microsecond)
	err := store.TouchLastSync(s.ctx, "src-1", ts)
	s.NoError(err)

	source, err := store.Get(s.ctx, "src-1")
	s.NoError(err)
	s.NotNil(source.LastSyncAt)
	s.WithinDuration(ts, *source.LastSyncAt, time.Second)

	err = store.TouchLastSync(s.ctx, "missing", ts)
	s.ErrorIs(err, domain.ErrSourceNotFound)
}

func (s *PostgresIntegrationSuite) TestContentStore_CreateAndDuplicate() {
	s.insertSource("src-1")
	store := NewContentStore(s.db)

	content := &domain.Content{
		SourceID:   "src-1",
		ExternalID: "chan1:42",
		Text:       "hello",
		RawData:    []byte(`{"id": 42}`),
		Status:     domain.ContentStatusPending,
	}

	created, err := store.Create(s.ctx, content)
	s.NoError(err)
	s.NotEmpty(created.ID)
	s.Equal(domain.ContentStatusPending, created.Status)
	s.False(created.IsVectorized)

	_, err = store.Create(s.ctx, content)
	s.ErrorIs(err, domain.ErrDuplicateContent)
}

func (s *PostgresIntegrationSuite) TestContentStore_FindByExternalID() {
	s.insertSource("src-1")
	store := NewContentStore(s.db)

	created, err := store.Create(s.ctx, &domain.Content{
		SourceID:   "src-1",
		ExternalID: "chan1:42",
		Text:       "hello",
		Status:     domain.ContentStatusPending,
	})
	s.Require().NoError(err)

	found, err := store.FindByExternalID(s.ctx, "src-1", "chan1:42")
	s.NoError(err)
	s.Equal(created.ID, found.ID)

	_, err = store.FindByExternalID(s.ctx, "src-1", "chan1:999")
	s.ErrorIs(err, domain.ErrContentNotFound)
}

func (s *PostgresIntegrationSuite) TestContentStore_FindMostRecentForSource() {
	s.insertSource("src-1")
	store := NewContentStore(s.db)

	latest, err := store.FindMostRecentForSource(s.ctx, "src-1")
	s.NoError(err)
	s.Nil(latest)

	base := time.Now().Add(-time.Hour).Truncate(time.Microsecond)
	for i := int64(1); i <= 3; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		_, err := store.Create(s.ctx, &domain.Content{
			SourceID:   "src-1",
			ExternalID: domain.ExternalContentID("chan1", i),
			Text:       "msg",
			Status:     domain.ContentStatusPending,
			SourceDate: &ts,
		})
		s.Require().NoError(err)
	}

	latest, err = store.FindMostRecentForSource(s.ctx, "src-1")
	s.NoError(err)
	s.NotNil(latest)
	s.Equal("chan1:3", latest.ExternalID)
}

func (s *PostgresIntegrationSuite) TestContentStore_Update() {
	s.insertSource("src-1")
	store := NewContentStore(s.db)

	created, err := store.Create(s.ctx, &domain.Content{
		SourceID:   "src-1",
		ExternalID: "chan1:42",
		Text:       "hello",
		Status:     domain.ContentStatusPending,
	})
	s.Require().NoError(err)

	analysis := &domain.AiAnalysisResult{
		Summary:   "Greeting",
		Sentiment: domain.SentimentNeutral,
		Keywords:  []string{"greeting"},
		Language:  "en",
	}
	status := domain.ContentStatusReady
	updated, err := store.Update(s.ctx, created.ID, domain.ContentUpdate{
		Status:         &status,
		AiAnalysis:     analysis,
		IsVectorized:   utils.Ptr(true),
		EmbeddingModel: utils.Ptr("gemini-embedding-001"),
		VectorID:       utils.Ptr("vec-1"),
	})
	s.NoError(err)
	s.Equal(domain.ContentStatusReady, updated.Status)
	s.True(updated.IsVectorized)
	s.Equal("gemini-embedding-001", *updated.EmbeddingModel)
	s.Equal("vec-1", *updated.VectorID)
	s.Require().NotNil(updated.AiAnalysis)
	s.Equal("Greeting", updated.AiAnalysis.Summary)
	s.True(updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
}

func (s *PostgresIntegrationSuite) TestContentStore_Update_NotFound() {
	store := NewContentStore(s.db)

	status := domain.ContentStatusReady
	_, err := store.Update(s.ctx, uuid.NewString(), domain.ContentUpdate{Status: &status})
	s.ErrorIs(err, domain.ErrContentNotFound)
}

func (s *PostgresIntegrationSuite) TestKeywordStore_UpsertBatch() {
	store := NewKeywordStore(s.db)

	ids, err := store.UpsertBatch(s.ctx, []string{"Rates", "policy", "rates ", ""})
	s.NoError(err)
	s.Len(ids, 2)

	again, err := store.UpsertBatch(s.ctx, []string{"rates", "policy"})
	s.NoError(err)
	s.ElementsMatch(ids, again)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM keywords")
	s.NoError(err)
	s.Equal(2, count)
}

func (s *PostgresIntegrationSuite) TestKeywordStore_LinkToContent_ReplacesOld() {
	s.insertSource("src-1")
	contentStore := NewContentStore(s.db)
	keywordStore := NewKeywordStore(s.db)

	created, err := contentStore.Create(s.ctx, &domain.Content{
		SourceID:   "src-1",
		ExternalID: "chan1:42",
		Text:       "hello",
		Status:     domain.ContentStatusPending,
	})
	s.Require().NoError(err)

	ids, err := keywordStore.UpsertBatch(s.ctx, []string{"alpha", "beta", "gamma"})
	s.Require().NoError(err)
	s.Require().Len(ids, 3)

	err = keywordStore.LinkToContent(s.ctx, created.ID, ids[:2])
	s.NoError(err)

	err = keywordStore.LinkToContent(s.ctx, created.ID, ids[2:])
	s.NoError(err)

	labels, err := keywordStore.GetByContentID(s.ctx, created.ID)
	s.NoError(err)
	s.Equal([]string{"gamma"}, labels)
}

func (s *PostgresIntegrationSuite) vectorOf(dim int, lead float32) []float32 {
	v := make([]float32, dim)
	v[0] = lead
	v[1] = 1 - lead
	return v
}

func (s *PostgresIntegrationSuite) TestVectorStore_UpsertKeepsIDStable() {
	s.insertSource("src-1")
	contentStore := NewContentStore(s.db)
	vectorStore := NewVectorStore(s.db)

	created, err := contentStore.Create(s.ctx, &domain.Content{
		SourceID:   "src-1",
		ExternalID: "chan1:42",
		Text:       "hello",
		Status:     domain.ContentStatusPending,
	})
	s.Require().NoError(err)

	id1, err := vectorStore.Upsert(s.ctx, created.ID, s.vectorOf(1536, 1), domain.VectorPayload{
		Summary:  "Greeting",
		Language: "en",
	})
	s.NoError(err)
	s.NotEmpty(id1)

	id2, err := vectorStore.Upsert(s.ctx, created.ID, s.vectorOf(1536, 0.9), domain.VectorPayload{
		Summary:  "Updated greeting",
		Language: "en",
	})
	s.NoError(err)
	s.Equal(id1, id2)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM content_vectors")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestVectorStore_SearchSimilar() {
	s.insertSource("src-1")
	contentStore := NewContentStore(s.db)
	vectorStore := NewVectorStore(s.db)

	for i := int64(1); i <= 2; i++ {
		created, err := contentStore.Create(s.ctx, &domain.Content{
			SourceID:   "src-1",
			ExternalID: domain.ExternalContentID("chan1", i),
			Text:       "msg",
			Status:     domain.ContentStatusPending,
		})
		s.Require().NoError(err)

		lead := float32(1)
		if i == 2 {
			lead = 0
		}
		_, err = vectorStore.Upsert(s.ctx, created.ID, s.vectorOf(1536, lead), domain.VectorPayload{
			Summary: "summary",
		})
		s.Require().NoError(err)
	}

	results, err := vectorStore.SearchSimilar(s.ctx, s.vectorOf(1536, 1), 10, 0.5)
	s.NoError(err)
	s.Require().Len(results, 1)
	s.InDelta(1.0, results[0].Score, 0.001)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	s.insertSource("src-1")
	tm := NewTransactionManager(s.db)
	keywordStore := NewKeywordStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		_, err := keywordStore.UpsertBatch(ctx, []string{"committed"})
		return err
	})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM keywords WHERE label = 'committed'")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	s.insertSource("src-1")
	tm := NewTransactionManager(s.db)
	keywordStore := NewKeywordStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := keywordStore.UpsertBatch(ctx, []string{"doomed"}); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM keywords WHERE label = 'doomed'")
	s.NoError(err)
	s.Equal(0, count)
}
