package deapi

import (
	"context"
	"time"

	"inkalbum/internal/logger"
)

const defaultPollInterval = 2 * time.Second

// Poller is the fallback completion path: ask the status endpoint on a fixed
// cadence until the job is terminal or the deadline passes.
type Poller struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

func NewPoller(client *Client) *Poller {
	return &Poller{client: client, interval: defaultPollInterval, log: logger.New("DeAPIPoller")}
}

// Poll always produces a terminal JobResult. Any transport failure during a
// poll cycle is fatal for the whole attempt, not silently retried.
func (p *Poller) Poll(ctx context.Context, requestID string, deadline time.Time) JobResult {
	p.log.LogInfof("polling status for request %s", requestID)

	for time.Now().Before(deadline) {
		info, err := p.client.FetchStatus(ctx, requestID)
		if err != nil {
			p.log.LogError("status poll failed", err)
			return JobResult{Outcome: OutcomeFailed, Reason: err.Error()}
		}

		switch info.Status {
		case StatusDone:
			if info.ResultURL == "" {
				return JobResult{Outcome: OutcomeFailed, Reason: "job done but no result_url"}
			}
			return JobResult{Outcome: OutcomeDone, ResultURL: info.ResultURL}
		case StatusError:
			reason := info.Message
			if reason == "" {
				reason = "remote job reported error"
			}
			p.log.LogErrorf("remote job %s failed: %s", requestID, reason)
			return JobResult{Outcome: OutcomeFailed, Reason: reason}
		}

		if info.Progress != "" {
			p.log.LogDebugf("illustration %s%% complete", info.Progress)
		}

		select {
		case <-ctx.Done():
			return JobResult{Outcome: OutcomeTimedOut, Reason: ctx.Err().Error()}
		case <-time.After(p.interval):
		}
	}

	p.log.LogWarnf("request %s not terminal before deadline", requestID)
	return JobResult{Outcome: OutcomeTimedOut}
}
