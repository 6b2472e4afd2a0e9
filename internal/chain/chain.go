package chain

import "context"

// Chain is the persistent chain store collaborator. PutHeaders and
// PutBodies each return the number of items actually accepted (the
// events layer reports this as the "accepted prefix" rather than the
// full batch length). PutHeaders wraps fetcher.ErrParentHeaderMissing when
// the batch's first header's parent cannot be found locally; PutBodies
// reports a body whose header is unknown with a plain error.
type Chain interface {
	PutHeaders(ctx context.Context, headers []Header) (int, error)
	PutBodies(ctx context.Context, bodies []Body) (int, error)
}
