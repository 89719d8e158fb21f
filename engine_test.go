package jobfeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/jobfeed/config"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.InMemory = true
	cfg.DataDir = ""
	cfg.Adaptation.Async = false
	cfg.Pagination.CursorSecret = "engine-test-secret-0123"
	return cfg
}

func TestOpen(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		e, err := Open(context.Background(), memoryConfig())
		require.NoError(t, err)
		defer e.Close()

		assert.NotNil(t, e.Service())
		assert.NotNil(t, e.Candidates())
		assert.NotNil(t, e.Profiles())
		assert.NotNil(t, e.Interactions())
		assert.NoError(t, e.Ping(context.Background()))
	})

	t.Run("on disk", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.InMemory = false
		cfg.DataDir = filepath.Join(t.TempDir(), "db")
		e, err := Open(context.Background(), cfg)
		require.NoError(t, err)
		assert.NoError(t, e.Close())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

		cfg := memoryConfig()
		cfg.InMemory = false
		cfg.DataDir = tmpFile
		e, err := Open(context.Background(), cfg)
		assert.Error(t, err)
		assert.Nil(t, e)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.Backend = "faiss"
		_, err := Open(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()
	e, err := Open(ctx, memoryConfig())
	require.NoError(t, err)
	defer e.Close()

	pipeline, err := e.NewIngestionPipeline(ingestion.WithPoolSize(2))
	require.NoError(t, err)
	candidates := make([]*core.Candidate, 12)
	for i := range candidates {
		candidates[i] = &core.Candidate{
			Title:       fmt.Sprintf("Backend Engineer %d", i),
			Company:     "Acme",
			Description: "Go services",
			Tags:        []string{"go", "postgres"},
			Seniority:   "senior",
			Location:    "Remote",
			Remote:      true,
			Active:      true,
			CreatedAt:   time.Now().UTC().Add(-time.Duration(i) * time.Hour),
		}
	}
	ids, err := pipeline.Ingest(ctx, candidates, nil)
	require.NoError(t, err)
	pipeline.Release()

	profile := &core.Profile{
		Id:                 core.NewID(),
		Headline:           "Backend engineer",
		Skills:             []string{"go", "postgres"},
		Seniority:          "senior",
		PreferredLocations: []string{"remote"},
	}
	require.NoError(t, e.Profiles().SaveProfiles(ctx, profile))

	// No profile vector yet: recency mode
	page, err := e.Service().Discover(ctx, profile.Id, "", 5)
	require.NoError(t, err)
	assert.Equal(t, "recency", page.Mode)
	require.Len(t, page.Items, 5)
	assert.True(t, page.HasMore)

	seen := map[core.ID]bool{}
	for _, item := range page.Items {
		seen[item.CandidateId] = true
	}
	next, err := e.Service().Discover(ctx, profile.Id, page.NextCursor, 5)
	require.NoError(t, err)
	for _, item := range next.Items {
		assert.False(t, seen[item.CandidateId], "pages must not overlap")
	}

	// Five positive interactions reach the first milestone
	for i := 0; i < 5; i++ {
		res, err := e.Service().RecordPositiveInteraction(ctx, profile.Id, ids[i])
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), res.Count)
	}
	stored, err := e.Profiles().GetProfile(ctx, profile.Id)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Vector)
	assert.Equal(t, int64(5), stored.AdaptedAt)

	page, err = e.Service().Discover(ctx, profile.Id, "", 20)
	require.NoError(t, err)
	assert.Equal(t, "similarity", page.Mode)
	assert.Len(t, page.Items, 7)
}

func TestEngine_ServerRoutes(t *testing.T) {
	e, err := Open(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer e.Close()

	srv := e.NewServer()
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = srv.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = srv.App().Test(httptest.NewRequest(http.MethodGet, "/v1/profiles/"+core.NewID().String()+"/discover", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
