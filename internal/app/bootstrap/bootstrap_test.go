package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/workshop-concierge/internal/config"
	"github.com/wolfman30/workshop-concierge/internal/conversation"
	"github.com/wolfman30/workshop-concierge/internal/kvstore"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

func TestBuildStoreRequiresConfig(t *testing.T) {
	_, err := BuildStore(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestBuildStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	h, err := BuildStore(context.Background(), &appconfig.Config{StoreBackend: BackendRedis, RedisAddr: mr.Addr()}, logging.Discard())
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, BackendRedis, h.Backend)
	require.NoError(t, h.Store.Set(context.Background(), "franz-extensions", map[string]any{"extensions": []any{}}))
	assert.True(t, mr.Exists(redisKeyPrefix+"franz-extensions"))
}

func TestBuildStoreRedisUnreachableDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	h, err := BuildStore(context.Background(), &appconfig.Config{StoreBackend: BackendRedis, RedisAddr: addr}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, BackendNone, h.Backend)
	assert.True(t, kvstore.IsUnavailable(h.Store))
}

func TestBuildStoreOtherBackends(t *testing.T) {
	ctx := context.Background()

	h, err := BuildStore(ctx, &appconfig.Config{StoreBackend: BackendMemory}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, h.Backend)
	assert.False(t, kvstore.IsUnavailable(h.Store))

	h, err = BuildStore(ctx, &appconfig.Config{StoreBackend: BackendNone}, logging.Discard())
	require.NoError(t, err)
	assert.True(t, kvstore.IsUnavailable(h.Store))

	h, err = BuildStore(ctx, &appconfig.Config{StoreBackend: BackendPostgres}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, BackendNone, h.Backend)

	_, err = BuildStore(ctx, &appconfig.Config{StoreBackend: "cassandra"}, logging.Discard())
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestBuildLLMClientWithoutCredentials(t *testing.T) {
	h, err := BuildLLMClient(context.Background(), &appconfig.Config{LLMProvider: ProviderOpenAI}, logging.Discard())
	require.NoError(t, err)
	assert.Nil(t, h.Client)
}

func TestBuildLLMClientOpenAI(t *testing.T) {
	h, err := BuildLLMClient(context.Background(), &appconfig.Config{
		LLMProvider:  ProviderOpenAI,
		OpenAIAPIKey: "sk-test",
		OpenAIModel:  "gpt-4o-mini",
	}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &conversation.OpenAIClient{}, h.Client)
	assert.Equal(t, "gpt-4o-mini", h.Model)
}

func TestBuildLLMClientFallback(t *testing.T) {
	h, err := BuildLLMClient(context.Background(), &appconfig.Config{
		LLMProvider:         ProviderOpenAI,
		LLMFallbackProvider: ProviderBedrock,
		OpenAIAPIKey:        "sk-test",
		BedrockModelID:      "anthropic.claude-3-haiku-20240307-v1:0",
		AWSRegion:           "eu-central-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
	}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &conversation.FallbackLLMClient{}, h.Client)
}

func TestBuildLLMClientFallbackOnlyWhenPrimaryUnconfigured(t *testing.T) {
	h, err := BuildLLMClient(context.Background(), &appconfig.Config{
		LLMProvider:         ProviderOpenAI,
		LLMFallbackProvider: ProviderBedrock,
		BedrockModelID:      "anthropic.claude-3-haiku-20240307-v1:0",
		AWSRegion:           "eu-central-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
	}, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, h.Client)
	assert.IsType(t, &conversation.BedrockLLMClient{}, h.Client)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", h.Model)
}

func TestBuildLLMClientUnknownProvider(t *testing.T) {
	_, err := BuildLLMClient(context.Background(), &appconfig.Config{LLMProvider: "watson"}, logging.Discard())
	assert.ErrorContains(t, err, "unknown llm provider")
}

func TestBuildAppServesHealthAndChat(t *testing.T) {
	cfg := &appconfig.Config{
		StoreBackend:       BackendMemory,
		WorkshopTimezone:   "Europe/Vienna",
		DefaultPersona:     "franz",
		LLMProvider:        ProviderOpenAI,
		LLMMaxTokens:       200,
		LLMTemperature:     0.7,
		HistoryLimit:       20,
		PublicBaseURL:      "http://localhost:8080",
		AdminKey:           "workshop2025admin",
		CORSAllowedOrigins: []string{"*"},
	}
	app, err := BuildApp(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer app.Close()

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, BackendMemory, health["storage"])

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/franz/brain", nil)
	app.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"alex", "franz"}, app.Personas.IDs())
}

func TestBuildAppRejectsUnknownPersona(t *testing.T) {
	_, err := BuildApp(context.Background(), &appconfig.Config{StoreBackend: BackendMemory, DefaultPersona: "pirat"}, logging.Discard())
	assert.Error(t, err)
}
