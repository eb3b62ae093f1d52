//go:build integration

package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/repository"
	"github.com/cloo-solutions/msassist/internal/service"
	"github.com/cloo-solutions/msassist/internal/symptoms"
	"github.com/cloo-solutions/msassist/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const fatigueLeaflet = `Fatigue in multiple sclerosis is one of the most common symptoms.
Cooling strategies, pacing and regular rest help many people manage fatigue.`

func TestPipeline_Integration_IngestThenChat(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	users := repository.NewUserRepository(pool)
	auth := service.NewAuthService(users, service.AuthConfig{
		Secret:     []byte("integration-secret"),
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	user, err := auth.Register(ctx, "pat@example.com", "longenough", "longenough")
	require.NoError(t, err)

	token, err := auth.Login(ctx, "PAT@example.com", "longenough")
	require.NoError(t, err)
	userID, err := auth.ValidateToken(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	txRunner := repository.NewTxRunner(pool)
	chunks := repository.NewChunkRepository(pool)
	embedder := testutil.HashEmbedder{}

	ingestion := service.NewIngestionService(repository.NewDocumentRepository(pool), txRunner, embedder, nil,
		service.IngestConfig{Chunk: service.ChunkConfig{Size: 80, Overlap: 10}, BatchSize: 2})
	result, err := ingestion.Ingest(ctx, service.IngestInput{
		UserID:   user.ID,
		Filename: "fatigue.txt",
		Title:    "Fatigue leaflet",
		Data:     []byte(fatigueLeaflet),
	})
	require.NoError(t, err)
	assert.Greater(t, result.ChunksIndexed, 1)

	again, err := ingestion.Ingest(ctx, service.IngestInput{UserID: user.ID, Filename: "fatigue.txt", Data: []byte(fatigueLeaflet)})
	require.NoError(t, err)
	assert.Equal(t, result.DocumentID, again.DocumentID)
	count, err := chunks.CountByDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, result.ChunksIndexed, count)

	generator := &testutil.EchoGenerator{Reply: "Pacing and cooling can help with MS fatigue."}
	responder := service.NewResponder(embedder, chunks, generator, symptoms.Default(), service.DefaultResponderConfig())
	conversations := service.NewConversationService(
		repository.NewSessionRepository(pool), repository.NewMessageRepository(pool), txRunner)
	chat := service.NewChatService(conversations, responder, nil, time.Second)

	first, err := chat.Send(ctx, service.SendInput{UserID: user.ID, Query: "How can I manage fatigue?"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	require.NotEmpty(t, first.Sources)
	assert.Equal(t, "fatigue.txt", first.Sources[0].Chunk.Filename)
	assert.Equal(t, "Fatigue", first.MatchedSymptoms[0].Name)
	assert.True(t, strings.Contains(generator.Prompts()[0].System, "fatigue.txt"))

	second, err := chat.Send(ctx, service.SendInput{UserID: user.ID, SessionID: first.Session.ID, Query: "Does heat make it worse?"})
	require.NoError(t, err)
	assert.False(t, second.Created)

	history, err := conversations.ListMessages(ctx, user.ID, first.Session.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i, m := range history {
		assert.Equal(t, i+1, m.Position)
	}
	assert.Equal(t, domain.RoleAssistant, history[3].Role)

	_, err = chat.Send(ctx, service.SendInput{UserID: "someone-else", SessionID: first.Session.ID, Query: "hi"})
	assert.ErrorIs(t, err, domain.ErrSessionForbidden)

	export := service.NewExportService(conversations)
	md, err := export.Export(ctx, user.ID, first.Session.ID, "md")
	require.NoError(t, err)
	assert.Contains(t, string(md.Data), "How can I manage fatigue?")
}
