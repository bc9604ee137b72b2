package adapt

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ValidateImages confirms reachability of image URLs via HEAD requests,
// processed in fixed-size batches with a pause between batches so the
// crawl never bursts against an arbitrary image host. A batch is fully
// awaited before the next one starts; individual failures are tolerated
// and simply excluded. Returns the URLs that answered with a success
// status, preserving input order.
func (c *Controller) ValidateImages(ctx context.Context, urls []string) []string {
	if len(urls) == 0 {
		return nil
	}

	// The validation budget stays shorter than the per-URL timeout so a
	// slow image host cannot starve the whole record.
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ImageValidateBudget)
	defer cancel()

	batchSize := c.cfg.ImageBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	reachable := make([]bool, len(urls))
	var mu sync.Mutex

	for start := 0; start < len(urls); start += batchSize {
		if ctx.Err() != nil {
			break
		}

		end := start + batchSize
		if end > len(urls) {
			end = len(urls)
		}

		g, batchCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				ok := c.headOK(batchCtx, urls[i])
				mu.Lock()
				reachable[i] = ok
				mu.Unlock()
				return nil
			})
		}
		// Workers never return errors; Wait is pure batch barrier here.
		_ = g.Wait()

		if end < len(urls) {
			select {
			case <-time.After(c.cfg.ImageBatchPause):
			case <-ctx.Done():
			}
		}
	}

	valid := make([]string, 0, len(urls))
	for i, ok := range reachable {
		if ok {
			valid = append(valid, urls[i])
		}
	}
	return valid
}

func (c *Controller) headOK(ctx context.Context, url string) bool {
	resp, err := c.head.Head(ctx, url)
	if err != nil {
		return false
	}
	if resp.Body != nil {
		resp.Body.Close()
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
