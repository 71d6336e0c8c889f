package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"memobase-go/internal/config"
	"memobase-go/internal/model"
	"memobase-go/pkg/embedding"
	"memobase-go/pkg/tasks"
)

func newTestDocumentService() (DocumentService, *fakeDocumentRepo, *fakeCentroidRepo, *fakeChunkIndex, *stubEmbedder, *[]tasks.ReclusterTask) {
	docRepo := &fakeDocumentRepo{}
	centroidRepo := newFakeCentroidRepo()
	chunkIdx := &fakeChunkIndex{}
	embedder := &stubEmbedder{}
	var enqueued []tasks.ReclusterTask
	svc := NewDocumentService(docRepo, centroidRepo, chunkIdx, embedder,
		config.ChunkingConfig{MaxChunkSize: 2000, Overlap: 200},
		func(task tasks.ReclusterTask) error {
			enqueued = append(enqueued, task)
			return nil
		})
	return svc, docRepo, centroidRepo, chunkIdx, embedder, &enqueued
}

func TestIngestCreatesThenDeduplicates(t *testing.T) {
	svc, docRepo, _, chunkIdx, _, _ := newTestDocumentService()
	ctx := context.Background()

	req := model.SaveContentRequest{
		Text:   "Как вернуть деньги за товар, купленный в интернет-магазине.",
		UserID: 1,
		URL:    "https://example.com/refund",
		Header: "Возврат товара",
	}

	first, err := svc.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.IngestStatusCreated, first.Status)
	assert.NotZero(t, first.ContentID)
	assert.Len(t, first.DocumentID, 16)
	assert.Equal(t, 1, first.SavedChunks)
	assert.Len(t, docRepo.docs, 1)
	assert.Len(t, chunkIdx.chunks, 1)

	second, err := svc.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.IngestStatusDuplicate, second.Status)
	assert.Equal(t, first.ContentID, second.ContentID)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	// 去重命中时不得重复写库或写索引
	assert.Len(t, docRepo.docs, 1)
	assert.Len(t, chunkIdx.chunks, 1)
}

func TestIngestTrimsBeforeHashing(t *testing.T) {
	svc, _, _, _, _, _ := newTestDocumentService()
	ctx := context.Background()

	first, err := svc.Ingest(ctx, model.SaveContentRequest{Text: "Гарантия на технику.", UserID: 1})
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, model.SaveContentRequest{Text: "  Гарантия на технику.\n\n", UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, model.IngestStatusDuplicate, second.Status)
	assert.Equal(t, first.ContentID, second.ContentID)
}

func TestIngestRejectsEmptyText(t *testing.T) {
	svc, _, _, _, _, _ := newTestDocumentService()

	_, err := svc.Ingest(context.Background(), model.SaveContentRequest{Text: "   \n\t ", UserID: 1})
	assert.Error(t, err)
}

func TestIngestSameTextDifferentUsersNotDeduplicated(t *testing.T) {
	svc, docRepo, _, _, _, _ := newTestDocumentService()
	ctx := context.Background()

	first, err := svc.Ingest(ctx, model.SaveContentRequest{Text: "Оплата возможна картой.", UserID: 1})
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, model.SaveContentRequest{Text: "Оплата возможна картой.", UserID: 2})
	require.NoError(t, err)

	assert.Equal(t, model.IngestStatusCreated, second.Status)
	assert.NotEqual(t, first.ContentID, second.ContentID)
	assert.NotEqual(t, first.DocumentID, second.DocumentID)
	assert.Len(t, docRepo.docs, 2)
}

func TestIngestAssignsNearestCluster(t *testing.T) {
	svc, _, centroidRepo, chunkIdx, _, _ := newTestDocumentService()
	ctx := context.Background()

	centroidRepo.byUser[1] = []model.Centroid{
		{Label: 7, Vector: stubVector("возврат"), Description: "Возврат товаров"},
		{Label: 8, Vector: stubVector("гарантия"), Description: "Гарантия"},
	}

	_, err := svc.Ingest(ctx, model.SaveContentRequest{
		Text:   "Чтобы вернуть покупку, заполните заявление.",
		UserID: 1,
	})
	require.NoError(t, err)

	require.Len(t, chunkIdx.chunks, 1)
	chunk := chunkIdx.chunks[0]
	require.NotNil(t, chunk.ClusterLabel)
	assert.Equal(t, 7, *chunk.ClusterLabel)
	assert.Equal(t, "Возврат товаров", chunk.ClusterDescription)
}

func TestIngestLeavesChunkUnlabeledWhenNoCentroids(t *testing.T) {
	svc, _, _, chunkIdx, _, _ := newTestDocumentService()

	_, err := svc.Ingest(context.Background(), model.SaveContentRequest{
		Text:   "Первый документ нового пользователя.",
		UserID: 5,
	})
	require.NoError(t, err)
	require.Len(t, chunkIdx.chunks, 1)
	assert.Nil(t, chunkIdx.chunks[0].ClusterLabel)
}

func TestIngestEnqueuesReclusterTask(t *testing.T) {
	svc, _, _, _, _, enqueued := newTestDocumentService()

	_, err := svc.Ingest(context.Background(), model.SaveContentRequest{
		Text:   "Доставка занимает три дня.",
		UserID: 42,
	})
	require.NoError(t, err)
	require.Len(t, *enqueued, 1)
	assert.Equal(t, uint(42), (*enqueued)[0].UserID)
	assert.Equal(t, "ingest", (*enqueued)[0].Reason)
}

func TestIngestUsesPassageMode(t *testing.T) {
	svc, _, _, _, embedder, _ := newTestDocumentService()

	_, err := svc.Ingest(context.Background(), model.SaveContentRequest{Text: "Текст документа.", UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, embedding.ModePassage, embedder.lastMode)
}

func TestEmbedDefaultsToQueryMode(t *testing.T) {
	svc, _, _, _, embedder, _ := newTestDocumentService()

	resp, err := svc.Embed(context.Background(), model.EmbedRequest{Texts: []string{"возврат"}})
	require.NoError(t, err)
	assert.Equal(t, embedding.ModeQuery, embedder.lastMode)
	assert.Equal(t, "query", resp.Type)
	require.Len(t, resp.Embeddings, 1)
	assert.Equal(t, len(resp.Embeddings[0]), resp.Dim)
}

func TestChunkEmbedReturnsAlignedPositions(t *testing.T) {
	svc, _, _, _, _, _ := newTestDocumentService()

	resp, err := svc.ChunkEmbed(context.Background(), model.ChunkEmbedRequest{
		Text:      "Первое предложение. Второе предложение. Третье предложение.",
		ChunkSize: 25,
		Overlap:   5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Chunks)
	assert.Len(t, resp.Embeddings, len(resp.Chunks))
	assert.Len(t, resp.Positions, len(resp.Chunks))
	for i, pos := range resp.Positions {
		assert.Less(t, pos[0], pos[1], "chunk %d", i)
	}
}

func TestChunkEmbedEmptyTextYieldsNoChunks(t *testing.T) {
	svc, _, _, _, embedder, _ := newTestDocumentService()

	resp, err := svc.ChunkEmbed(context.Background(), model.ChunkEmbedRequest{Text: "   "})
	require.NoError(t, err)
	assert.Empty(t, resp.Chunks)
	assert.Empty(t, resp.Embeddings)
	// 没有分块时不应调用向量化接口
	assert.Zero(t, embedder.calls)
}
