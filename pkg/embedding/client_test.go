package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"memobase-go/internal/config"
)

func newEmbeddingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(config.EmbeddingConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "test-model",
		Dimensions: 2,
	})
	return server, client
}

func TestCreateEmbeddingsPrefixesAndNormalizes(t *testing.T) {
	var gotReq embeddingRequest
	var gotAuth string
	_, client := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{3, 4}},
				{"embedding": []float32{0, 2}},
			},
		})
	})

	vectors, err := client.CreateEmbeddings(context.Background(), []string{"первый", "второй"}, ModePassage)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Input, 2)
	assert.Equal(t, "passage: первый", gotReq.Input[0])
	assert.Equal(t, "passage: второй", gotReq.Input[1])

	// 向量被归一化到单位长度
	require.Len(t, vectors, 2)
	assert.InDelta(t, 0.6, vectors[0][0], 1e-6)
	assert.InDelta(t, 0.8, vectors[0][1], 1e-6)
	var norm float64
	for _, x := range vectors[1] {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestCreateEmbeddingsUnknownModeFallsBackToQuery(t *testing.T) {
	var gotReq embeddingRequest
	_, client := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"embedding": []float32{1, 0}}},
		})
	})

	_, err := client.CreateEmbeddings(context.Background(), []string{"текст"}, Mode("unknown"))
	require.NoError(t, err)
	require.Len(t, gotReq.Input, 1)
	assert.Equal(t, "query: текст", gotReq.Input[0])
}

func TestCreateEmbeddingsRejectsEmptyInput(t *testing.T) {
	client := NewClient(config.EmbeddingConfig{BaseURL: "http://127.0.0.1:1"})

	_, err := client.CreateEmbeddings(context.Background(), nil, ModeQuery)
	assert.Error(t, err)
}

func TestCreateEmbeddingsCountMismatch(t *testing.T) {
	_, client := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"embedding": []float32{1, 0}}},
		})
	})

	_, err := client.CreateEmbeddings(context.Background(), []string{"a", "b"}, ModeQuery)
	assert.ErrorContains(t, err, "mismatch")
}

func TestCreateEmbeddingsNon200Status(t *testing.T) {
	_, client := newEmbeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.CreateEmbeddings(context.Background(), []string{"a"}, ModeQuery)
	assert.Error(t, err)
}
