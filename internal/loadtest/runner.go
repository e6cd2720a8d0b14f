package loadtest

import (
	"context"
	"fmt"
	"time"

	"github.com/roboheist/backend/pkg/logger"
)

// Run executes a complete load run and returns the collected statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadtest")

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()),
		logger.Bool("verbose", cfg.Verbose))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: the service is up
	if err := checkService(ctx, client); err != nil {
		return stats, fmt.Errorf("service check failed: %w", err)
	}

	// Step 2: build registrations
	regs, err := generateTeams(ctx, cfg.Teams, stats)
	if err != nil {
		return stats, fmt.Errorf("team generation failed: %w", err)
	}

	// Step 3: register concurrently
	registered := registerTeams(ctx, cfg, client, regs, stats)
	if stats.TeamsFailed > 0 || stats.TeamsDuplicate > 0 {
		return stats, fmt.Errorf("%w: %d failed, %d duplicate of %d",
			ErrVerification, stats.TeamsFailed, stats.TeamsDuplicate, len(regs))
	}

	// Step 4: name clashes and bad input are rejected
	if err := checkDuplicate(ctx, client, regs[0]); err != nil {
		return stats, fmt.Errorf("duplicate check failed: %w", err)
	}
	if err := checkInvalid(ctx, client); err != nil {
		return stats, fmt.Errorf("validation check failed: %w", err)
	}

	// Step 5: the leaderboard reflects every registration
	board, err := fetchLeaderboard(ctx, client, stats)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	if err := verifyLeaderboard(board, registered); err != nil {
		return stats, fmt.Errorf("leaderboard verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats, board, cfg.Verbose)

	log.Info(ctx, "load run completed successfully")
	return stats, nil
}

// displayFinalStats logs the run summary and the top of the board.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats, board []Entry, verbose bool) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.TeamsRegistered) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("teamsGenerated", stats.TeamsGenerated),
		logger.Int("teamsRegistered", stats.TeamsRegistered),
		logger.Int("teamsDuplicate", stats.TeamsDuplicate),
		logger.Int("teamsFailed", stats.TeamsFailed),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("registrationsPerSecond", perSecond))

	if !verbose {
		return
	}
	top := min(len(board), 10)
	for i, e := range board[:top] {
		log.Info(ctx, "leader",
			logger.Int("rank", i+1),
			logger.String("id", e.ID),
			logger.String("team", e.Team),
			logger.Int("score", e.Score))
	}
}
