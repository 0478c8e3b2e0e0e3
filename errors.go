package surgo

import "errors"

var (
	// ErrNoRows is returned by First and One when the query matched nothing.
	ErrNoRows = errors.New("surgo: no rows in result")

	// ErrMultipleRows is returned by One when the query matched more than
	// one row.
	ErrMultipleRows = errors.New("surgo: more than one row in result")

	// ErrNoEmbedder is returned by SearchSimilar when the client was built
	// without WithEmbedder.
	ErrNoEmbedder = errors.New("surgo: embedder not configured (use WithEmbedder)")
)
