package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tdh8316/probex/internal/data"
	"github.com/tdh8316/probex/internal/httpx"
)

var errMissingPair = errors.New("missing claimed/unclaimed identifiers in registry")

// ValidatePlatforms checks each platform against its known-present and
// known-absent identifiers. A platform passes when the claimed identifier is
// confirmed and the unclaimed one is not found. Blocked results on either side
// count as failures since the HTTP tier alone could not decide them.
func (s *Scanner) ValidatePlatforms(
	ctx context.Context,
	platforms []data.Platform,
	requests *atomic.Int64,
	onFailure func(ValidationFailure),
) (int, error) {
	if onFailure == nil {
		return 0, fmt.Errorf("onFailure callback is nil")
	}
	if requests == nil {
		requests = new(atomic.Int64)
	}

	workers := min(s.cfg.Concurrency, len(platforms))
	if workers == 0 {
		return 0, nil
	}

	ua := httpx.PickUserAgent(s.rnd, s.cfg.UserAgents)
	jobs := make(chan data.Platform)
	failures := make(chan ValidationFailure, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for p := range jobs {
				if p.Claimed == "" || p.Unclaimed == "" {
					failures <- ValidationFailure{
						Platform:  p.Name,
						Claimed:   p.Claimed,
						Unclaimed: p.Unclaimed,
						Err:       errMissingPair,
					}
					continue
				}

				used := s.Probe(ctx, p.Claimed, p, ua, requests)
				unused := s.Probe(ctx, p.Unclaimed, p, ua, requests)
				if used.Status == Confirmed && unused.Status == NotFound {
					continue
				}

				failures <- ValidationFailure{
					Platform:  p.Name,
					Claimed:   p.Claimed,
					Unclaimed: p.Unclaimed,
					Used:      used,
					Unused:    unused,
				}
			}
		}()
	}

	go func() {
		defer close(failures)
		wg.Wait()
	}()

	go func() {
		defer close(jobs)
		for _, p := range platforms {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()

	count := 0
	for f := range failures {
		count++
		onFailure(f)
	}

	return count, ctx.Err()
}
