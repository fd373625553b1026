package source

import (
	"context"
	"errors"
	"sync"

	"convene/pkg/client"
	"convene/pkg/logger"
	"convene/pkg/model"
	"convene/pkg/timeutil"
)

// BusySource fetches the busy blocks of one participant within a window.
// An error means the participant's availability is unknown, not that the
// request as a whole failed.
type BusySource interface {
	Fetch(ctx context.Context, participant string, window timeutil.Interval) ([]model.BusyBlock, error)
}

// Outcome is the per-participant result of a fan-out fetch. FailReason is
// set iff Err is set, and is safe to show to the requester.
type Outcome struct {
	Participant string
	Blocks      []model.BusyBlock
	Err         error
	FailReason  string
}

// Fetcher fans fetches out over a fixed-size worker pool. The pool is sized
// by configuration, not by participant count, so a request with hundreds of
// participants cannot exhaust connections to the calendar provider.
type Fetcher struct {
	source   BusySource
	poolSize int
	log      *logger.Logger
}

func NewFetcher(source BusySource, poolSize int, log *logger.Logger) *Fetcher {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Fetcher{
		source:   source,
		poolSize: poolSize,
		log:      log,
	}
}

// FetchAll fetches busy blocks for every participant concurrently and
// returns one Outcome per participant, in input order. Individual failures
// are recorded, never propagated.
func (f *Fetcher) FetchAll(ctx context.Context, participants []string, window timeutil.Interval) []Outcome {
	outcomes := make([]Outcome, len(participants))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := min(f.poolSize, len(participants))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = f.fetchOne(ctx, participants[i], window)
			}
		}()
	}

	for i := range participants {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (f *Fetcher) fetchOne(ctx context.Context, participant string, window timeutil.Interval) Outcome {
	blocks, err := f.source.Fetch(ctx, participant, window)
	if err != nil {
		f.log.Warn("Busy-block fetch failed, treating participant as unknown availability",
			"participant", participant,
			"error", err,
		)
		return Outcome{
			Participant: participant,
			Err:         err,
			FailReason:  failReason(err),
		}
	}
	return Outcome{Participant: participant, Blocks: blocks}
}

func failReason(err error) string {
	var provErr *client.ProviderError
	if errors.As(err, &provErr) {
		return provErr.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "calendar fetch timed out"
	}
	return "calendar unavailable"
}
