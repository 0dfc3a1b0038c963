package mock

import (
	"context"
	"fmt"
	"sync"
)

// Fetcher serves canned documents keyed by feed URL.
// A URL listed in Block waits until the context is done.
type Fetcher struct {
	BodyByFeed map[string][]byte
	ErrByFeed  map[string]error
	Block      map[string]bool

	mu    sync.Mutex
	Calls []string
}

func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, feedURL)
	f.mu.Unlock()

	if f.Block[feedURL] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.ErrByFeed != nil {
		if err, ok := f.ErrByFeed[feedURL]; ok {
			return nil, err
		}
	}
	body, ok := f.BodyByFeed[feedURL]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", feedURL)
	}
	return body, nil
}
