package embedding_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/vecgo/metric"

	"github.com/stillharbor/anchorage/internal/embedding"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := embedding.NewHashEmbedder(256)
	ctx := context.Background()

	a, err := e.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	b, err := e.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if len(a) != 256 {
		t.Fatalf("dimension = %d, want 256", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestHashEmbedderSimilarity(t *testing.T) {
	e := embedding.NewHashEmbedder(256)
	ctx := context.Background()

	base, _ := e.Embed(ctx, "annual budget review for the engineering department")
	near, _ := e.Embed(ctx, "annual budget review for the marketing department")
	far, _ := e.Embed(ctx, "migratory patterns of arctic seabirds")

	simNear, err := metric.CosineSimilarity(base, near)
	if err != nil {
		t.Fatalf("cosine: %v", err)
	}
	simFar, err := metric.CosineSimilarity(base, far)
	if err != nil {
		t.Fatalf("cosine: %v", err)
	}

	if simNear <= simFar {
		t.Errorf("near similarity %f should exceed far similarity %f", simNear, simFar)
	}
}

func TestHashEmbedderUnitLength(t *testing.T) {
	e := embedding.NewHashEmbedder(128)
	vec, err := e.Embed(context.Background(), "some tokens to embed")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("squared norm = %f, want ~1.0", sum)
	}
}

func TestHashEmbedderEmptyText(t *testing.T) {
	e := embedding.NewHashEmbedder(64)
	if _, err := e.Embed(context.Background(), ""); !errors.Is(err, embedding.ErrEmptyText) {
		t.Errorf("error = %v, want ErrEmptyText", err)
	}
}

func TestHashEmbedderBatch(t *testing.T) {
	e := embedding.NewHashEmbedder(64)
	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("batch length = %d, want 3", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 64 {
			t.Errorf("vecs[%d] dimension = %d, want 64", i, len(v))
		}
	}
}

type countingEmbedder struct {
	*embedding.HashEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.HashEmbedder.Embed(ctx, text)
}

func TestCachedAvoidsRepeatCalls(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: embedding.NewHashEmbedder(64)}
	cached := embedding.NewCached(inner, 16)
	ctx := context.Background()

	for range 5 {
		if _, err := cached.Embed(ctx, "repeated text"); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestCachedEvictsLRU(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: embedding.NewHashEmbedder(64)}
	cached := embedding.NewCached(inner, 2)
	ctx := context.Background()

	cached.Embed(ctx, "first")
	cached.Embed(ctx, "second")
	cached.Embed(ctx, "third")

	inner.calls = 0
	cached.Embed(ctx, "first")
	if inner.calls != 1 {
		t.Errorf("evicted entry should miss: calls = %d, want 1", inner.calls)
	}

	inner.calls = 0
	cached.Embed(ctx, "third")
	if inner.calls != 0 {
		t.Errorf("recent entry should hit: calls = %d, want 0", inner.calls)
	}
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: embedding.NewHashEmbedder(64)}
	cached := embedding.NewCached(inner, 16)
	ctx := context.Background()

	cached.Embed(ctx, "")
	cached.Embed(ctx, "")

	if inner.calls != 2 {
		t.Errorf("error results must not be cached: calls = %d, want 2", inner.calls)
	}
}

func TestCachedDimension(t *testing.T) {
	cached := embedding.NewCached(embedding.NewHashEmbedder(96), 4)
	if got := cached.Dimension(); got != 96 {
		t.Errorf("Dimension() = %d, want 96", got)
	}
}
