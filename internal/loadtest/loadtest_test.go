package loadtest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/roboheist/backend/internal/adapters/http/api"
	service "github.com/roboheist/backend/internal/app"
	"github.com/roboheist/backend/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	svc := service.New(service.WithLogger(logger.Nop()), service.WithRandomSeed(7))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	api.NewServer(svc, api.WithLogger(logger.Nop())).Register(ctx, mux)
	srv := httptest.NewServer(api.JSONErrors(mux))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	Convey("Given a running backend", t, func() {
		srv := newBackend(t)
		cfg := &Config{BaseURL: srv.URL, Teams: 200, Workers: 8, Timeout: 5 * time.Second, Verbose: true}

		Convey("When a load run registers teams", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then every team is registered and verified", func() {
				So(err, ShouldBeNil)
				So(stats.TeamsGenerated, ShouldEqual, 200)
				So(stats.TeamsRegistered, ShouldEqual, 200)
				So(stats.TeamsFailed, ShouldEqual, 0)
				So(stats.LeaderboardEntries, ShouldEqual, 205)
			})
		})

		Convey("When the worker count is zero", func() {
			cfg.Workers = 0
			cfg.Teams = 3
			_, err := Run(context.Background(), cfg)

			Convey("Then one worker is used", func() {
				So(err, ShouldBeNil)
				So(cfg.Workers, ShouldEqual, 1)
			})
		})
	})

	Convey("Given nothing listening", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := Run(context.Background(), &Config{BaseURL: url, Teams: 1, Workers: 1, Timeout: time.Second})
		So(err, ShouldNotBeNil)
	})

	Convey("Given a backend that accepts duplicate names", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"message":"ROBO-HEIST backend running"}`)
		})
		mux.HandleFunc("POST /api/register", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"ok":true,"team":{"id":"t6","team":"x","score":60}}`)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		_, err := Run(context.Background(), &Config{BaseURL: srv.URL, Teams: 1, Workers: 1, Timeout: time.Second})

		Convey("Then the duplicate check fails the run", func() {
			So(errors.Is(err, ErrVerification), ShouldBeTrue)
		})
	})
}

func TestGenerateTeams(t *testing.T) {
	Convey("Given a team count", t, func() {
		stats := &Stats{}
		regs, err := generateTeams(context.Background(), 50, stats)

		So(err, ShouldBeNil)
		So(regs, ShouldHaveLength, 50)
		So(stats.TeamsGenerated, ShouldEqual, 50)

		Convey("Then names are unique and within limits", func() {
			seen := map[string]bool{}
			for _, r := range regs {
				So(seen[r.Team], ShouldBeFalse)
				seen[r.Team] = true
				So(len(r.Team), ShouldBeBetweenOrEqual, 2, 64)
				So(len(r.Institution), ShouldBeBetweenOrEqual, 2, 128)
				So(r.Email, ShouldContainSubstring, "@example.com")
			}
		})
	})

	Convey("Given a non-positive count", t, func() {
		_, err := generateTeams(context.Background(), 0, &Stats{})
		So(err, ShouldNotBeNil)
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := generateTeams(ctx, 5, &Stats{})
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestVerifyLeaderboard(t *testing.T) {
	Convey("Given a leaderboard", t, func() {
		board := []Entry{
			{ID: "t1", Team: "Vector Vipers", Score: 92},
			{ID: "t6", Team: "Load A", Score: 80},
			{ID: "t7", Team: "Load B", Score: 80},
		}
		registered := map[string]Entry{
			"Load A": {ID: "t6", Team: "Load A", Score: 80},
			"Load B": {ID: "t7", Team: "Load B", Score: 80},
		}

		Convey("It accepts a consistent board", func() {
			So(verifyLeaderboard(board, registered), ShouldBeNil)
		})

		Convey("It rejects a board out of order", func() {
			board[0].Score = 10
			So(errors.Is(verifyLeaderboard(board, registered), ErrVerification), ShouldBeTrue)
		})

		Convey("It rejects a repeated id", func() {
			board[2].ID = "t6"
			So(errors.Is(verifyLeaderboard(board, registered), ErrVerification), ShouldBeTrue)
		})

		Convey("It rejects a missing team", func() {
			registered["Load C"] = Entry{ID: "t8", Team: "Load C", Score: 70}
			So(errors.Is(verifyLeaderboard(board, registered), ErrVerification), ShouldBeTrue)
		})

		Convey("It rejects a score outside the range", func() {
			board[1].Score = 96
			board[0].Score = 99
			registered["Load A"] = board[1]
			So(errors.Is(verifyLeaderboard(board, registered), ErrVerification), ShouldBeTrue)
		})
	})
}

func TestSwapCase(t *testing.T) {
	Convey("swapCase flips ASCII letters only", t, func() {
		So(swapCase("Load ab12CD"), ShouldEqual, "lOAD AB12cd")
	})
}
