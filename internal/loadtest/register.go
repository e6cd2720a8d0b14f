package loadtest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roboheist/backend/pkg/logger"
)

type submitResult int

const (
	resultRegistered submitResult = iota
	resultDuplicate
	resultFailed
)

// registerTeams posts every registration through a worker pool and returns
// the entries the server assigned, keyed by team name.
func registerTeams(ctx context.Context, cfg *Config, client *HTTPClient, regs []Registration, stats *Stats) map[string]Entry {
	log := logger.Get().Named("register")
	log.Info(ctx, "registering teams", logger.Int("teams", len(regs)), logger.Int("workers", cfg.Workers))

	var (
		registered int64
		duplicate  int64
		failed     int64
		submitted  int64
		lastReport atomic.Int64

		mu      sync.Mutex
		entries = make(map[string]Entry, len(regs))
	)

	jobs := make(chan Registration, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for reg := range jobs {
				if ctx.Err() != nil {
					return
				}

				entry, result := submitRegistration(ctx, client, reg)
				atomic.AddInt64(&submitted, 1)
				switch result {
				case resultRegistered:
					atomic.AddInt64(&registered, 1)
					mu.Lock()
					entries[reg.Team] = entry
					mu.Unlock()
				case resultDuplicate:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if cfg.Verbose && now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int("submitted", int(atomic.LoadInt64(&submitted))),
						logger.Int("total", len(regs)),
						logger.Int("registered", int(atomic.LoadInt64(&registered))),
						logger.Int("duplicate", int(atomic.LoadInt64(&duplicate))),
						logger.Int("failed", int(atomic.LoadInt64(&failed))))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, reg := range regs {
			select {
			case <-ctx.Done():
				return
			case jobs <- reg:
			}
		}
	}()

	wg.Wait()

	stats.TeamsRegistered = int(registered)
	stats.TeamsDuplicate = int(duplicate)
	stats.TeamsFailed = int(failed)

	log.Info(ctx, "registration completed",
		logger.Int("registered", stats.TeamsRegistered),
		logger.Int("duplicate", stats.TeamsDuplicate),
		logger.Int("failed", stats.TeamsFailed))

	return entries
}

func submitRegistration(ctx context.Context, client *HTTPClient, reg Registration) (Entry, submitResult) {
	status, body, err := client.Post(ctx, "/api/register", reg)
	if err != nil {
		return Entry{}, resultFailed
	}

	switch status {
	case http.StatusOK:
		var resp RegisterResponse
		if err := json.Unmarshal(body, &resp); err != nil || !resp.OK {
			return Entry{}, resultFailed
		}
		return resp.Team, resultRegistered
	case http.StatusBadRequest:
		return Entry{}, resultDuplicate
	default:
		return Entry{}, resultFailed
	}
}
