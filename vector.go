package surgo

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/surgo/pkg/surql"
)

// Embedder turns text into an embedding vector. Implemented by
// internal/transport/openai for OpenAI-compatible providers; any custom
// implementation works.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchSimilar embeds the text and runs a k-nearest-neighbour query
// against the given vector field, on top of the query's other filters.
// Requires WithEmbedder.
func (q Query) SearchSimilar(ctx context.Context, field, text string, k int) ([]Row, error) {
	if q.c.embedder == nil {
		return nil, ErrNoEmbedder
	}
	if k <= 0 {
		return nil, fmt.Errorf("surgo: k must be positive, got %d", k)
	}

	vec, err := q.c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("surgo: embed query text: %w", err)
	}

	n, err := surql.Pred(field, surql.OpKNN, KNN{Vector: toFloat64s(vec), K: k})
	if err != nil {
		return nil, err
	}
	return q.Filter(n).Limit(k).All(ctx)
}

func toFloat64s(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}
