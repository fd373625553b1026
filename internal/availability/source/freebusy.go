package source

import (
	"context"
	"time"

	"convene/pkg/client"
	"convene/pkg/model"
	"convene/pkg/timeutil"
)

// FreeBusySource adapts the calendar provider's free/busy endpoint to the
// BusySource interface. Every fetch is bounded by its own timeout so one
// slow calendar cannot hold the worker pool.
type FreeBusySource struct {
	client  *client.FreeBusyClient
	timeout time.Duration
}

func NewFreeBusySource(fbClient *client.FreeBusyClient, timeout time.Duration) *FreeBusySource {
	return &FreeBusySource{
		client:  fbClient,
		timeout: timeout,
	}
}

func (s *FreeBusySource) Fetch(ctx context.Context, participant string, window timeutil.Interval) ([]model.BusyBlock, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	intervals, err := s.client.Query(ctx, participant, window.Start, window.End)
	if err != nil {
		return nil, err
	}

	blocks := make([]model.BusyBlock, 0, len(intervals))
	for _, iv := range intervals {
		blocks = append(blocks, model.BusyBlock{
			Participant: participant,
			StartTime:   iv.Start,
			EndTime:     iv.End,
		})
	}
	return blocks, nil
}
