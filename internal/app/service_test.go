package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/roboheist/backend/internal/adapters/repository"
	service "github.com/roboheist/backend/internal/app"
	"github.com/roboheist/backend/internal/domain/dedupe"
	"github.com/roboheist/backend/internal/domain/model"
	"github.com/roboheist/backend/internal/domain/scoring"
	"github.com/roboheist/backend/internal/domain/types"
	"github.com/roboheist/backend/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []types.StreamMessage
}

func (p *recordingPublisher) Publish(_ context.Context, msg types.StreamMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Subscribers() int { return 3 }

func (p *recordingPublisher) last() (types.StreamMessage, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return types.StreamMessage{}, 0
	}
	return p.messages[len(p.messages)-1], len(p.messages)
}

// blockingPublisher holds every Publish call until release is closed.
type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingPublisher) Publish(context.Context, types.StreamMessage) error {
	p.once.Do(func() { close(p.entered) })
	<-p.release
	return nil
}

func registration(team string) model.Registration {
	return model.Registration{Team: team, Institution: "Tech U", Email: "c@d.com", Members: []string{}}
}

func startService(opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithLogger(logger.Nop())}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))

		Convey("When used before Start", func() {
			_, err := svc.Leaderboard(context.Background())
			_, regErr := svc.Register(context.Background(), registration("Early Crew"))

			Convey("Then it should report not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(regErr, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When started twice and stopped twice", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			svc.Stop()
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Leaderboard(t *testing.T) {
	Convey("Given a started service with seed teams", t, func() {
		svc := startService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("When reading the leaderboard", func() {
			entries, err := svc.Leaderboard(ctx)

			Convey("Then it should list the seeds by score", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 5)
				So(entries[0], ShouldResemble, types.Entry{ID: "t1", Team: "Vector Vipers", Score: 92})
				So(entries[4], ShouldResemble, types.Entry{ID: "t5", Team: "Circuit Cartel", Score: 70})
			})
		})

		Convey("When taking a snapshot", func() {
			msg, err := svc.Snapshot(ctx)

			Convey("Then it should be a snapshot message", func() {
				So(err, ShouldBeNil)
				So(msg.Type, ShouldEqual, types.StreamSnapshot)
				So(msg.Team, ShouldBeNil)
				So(len(msg.Teams), ShouldEqual, 5)
			})
		})
	})

	Convey("Given a service without seed teams", t, func() {
		svc := startService(service.WithSeedTeams(false))
		defer svc.Stop()

		Convey("Then the leaderboard should be an empty list", func() {
			entries, err := svc.Leaderboard(context.Background())
			So(err, ShouldBeNil)
			So(entries, ShouldNotBeNil)
			So(len(entries), ShouldEqual, 0)
		})
	})
}

func TestService_Register(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startService(service.WithRandomSeed(42))
		defer svc.Stop()
		ctx := context.Background()

		Convey("When registering a new team", func() {
			entry, err := svc.Register(ctx, registration("Robo Rangers"))

			Convey("Then it should get the next id and a score in range", func() {
				So(err, ShouldBeNil)
				So(entry.ID, ShouldEqual, "t6")
				So(entry.Team, ShouldEqual, "Robo Rangers")
				So(entry.Score, ShouldBeBetweenOrEqual, 50, 95)
			})

			Convey("And it should appear on the leaderboard", func() {
				entries, _ := svc.Leaderboard(ctx)
				So(len(entries), ShouldEqual, 6)
				So(svc.GetStats()["totalTeams"], ShouldEqual, 6)
			})
		})

		Convey("When registering an existing name in another case", func() {
			_, err := svc.Register(ctx, registration("quantum crew"))

			Convey("Then it should be rejected as a duplicate", func() {
				So(errors.Is(err, repository.ErrDuplicateTeam), ShouldBeTrue)
				entries, _ := svc.Leaderboard(ctx)
				So(len(entries), ShouldEqual, 5)
			})
		})
	})

	Convey("Given two services with the same seed", t, func() {
		a := startService(service.WithRandomSeed(7))
		defer a.Stop()
		b := startService(service.WithRandomSeed(7))
		defer b.Stop()

		Convey("Then they should assign the same scores", func() {
			for i := 0; i < 5; i++ {
				name := fmt.Sprintf("Crew %d", i)
				ea, errA := a.Register(context.Background(), registration(name))
				eb, errB := b.Register(context.Background(), registration(name))
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(ea.Score, ShouldEqual, eb.Score)
			}
		})
	})

	Convey("Given a narrowed score range", t, func() {
		svc := startService(service.WithScoreRange(60, 60))
		defer svc.Stop()

		Convey("Then every score should equal the bound", func() {
			entry, err := svc.Register(context.Background(), registration("Exact Crew"))
			So(err, ShouldBeNil)
			So(entry.Score, ShouldEqual, 60)
			So(svc.GetStats()["scoreMin"], ShouldEqual, 60)
		})
	})

	Convey("Given an injected store", t, func() {
		store := repository.NewMemoryStore(context.Background(), repository.WithScorer(scoring.Fixed(77)))
		svc := startService(service.WithStore(store))
		defer svc.Stop()

		Convey("Then the service should read and write through it", func() {
			entry, err := svc.Register(context.Background(), registration("Injected Crew"))
			So(err, ShouldBeNil)
			So(entry, ShouldResemble, types.Entry{ID: "t1", Team: "Injected Crew", Score: 77})
			So(store.Count(context.Background()), ShouldEqual, 1)
		})
	})
}

func TestService_Notifications(t *testing.T) {
	Convey("Given a service with a publisher", t, func() {
		publisher := &recordingPublisher{}
		svc := startService(service.WithPublisher(publisher), service.WithQueueSize(8))
		defer svc.Stop()

		Convey("When a team registers", func() {
			entry, err := svc.Register(context.Background(), registration("Signal Crew"))
			So(err, ShouldBeNil)

			Convey("Then subscribers should get an update naming it", func() {
				deadline := time.Now().Add(2 * time.Second)
				var msg types.StreamMessage
				var n int
				for time.Now().Before(deadline) {
					if msg, n = publisher.last(); n > 0 {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(n, ShouldBeGreaterThan, 0)
				So(msg.Type, ShouldEqual, types.StreamUpdate)
				So(msg.Team.ID, ShouldEqual, entry.ID)
				So(len(msg.Teams), ShouldEqual, 6)
			})

			Convey("And stats should report the queue and subscribers", func() {
				stats := svc.GetStats()
				So(stats["queueCapacity"], ShouldEqual, 8)
				So(stats["subscribers"], ShouldEqual, 3)
				So(stats["notifiers"], ShouldEqual, 1)
			})
		})

		Convey("When a duplicate is rejected", func() {
			_, err := svc.Register(context.Background(), registration("VECTOR VIPERS"))
			So(err, ShouldNotBeNil)

			Convey("Then nothing is published", func() {
				time.Sleep(50 * time.Millisecond)
				_, n := publisher.last()
				So(n, ShouldEqual, 0)
			})
		})
	})
}

func TestService_StopWithStuckPublisher(t *testing.T) {
	Convey("Given a service whose publisher never returns on its own", t, func() {
		publisher := &blockingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
		svc := startService(service.WithPublisher(publisher), service.WithStopTimeout(50*time.Millisecond))

		_, err := svc.Register(context.Background(), registration("Stuck Crew"))
		So(err, ShouldBeNil)

		select {
		case <-publisher.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("publisher was never called")
		}

		Convey("When Stop outlives its timeout", func() {
			stopped := make(chan time.Duration, 1)
			start := time.Now()
			go func() {
				svc.Stop()
				stopped <- time.Since(start)
			}()

			time.AfterFunc(200*time.Millisecond, func() { close(publisher.release) })

			Convey("Then the workers are interrupted and Stop returns", func() {
				var elapsed time.Duration
				select {
				case elapsed = <-stopped:
				case <-time.After(3 * time.Second):
					t.Fatal("Stop did not return")
				}
				So(elapsed, ShouldBeGreaterThanOrEqualTo, 50*time.Millisecond)
				So(svc.GetStats()["started"], ShouldBeFalse)
			})
		})
	})
}

func TestService_NameIndex(t *testing.T) {
	Convey("Given a service with the default name index", t, func() {
		svc := startService()
		defer svc.Stop()

		Convey("Then the seeds are indexed", func() {
			So(svc.GetStats()["indexedNames"], ShouldEqual, 5)
		})
	})

	Convey("Given a service with a case-sensitive name index", t, func() {
		exact := dedupe.NewInMemoryDeduper(dedupe.WithNormalizer(func(s string) string { return s }))
		svc := startService(service.WithNameIndex(exact))
		defer svc.Stop()

		Convey("When a seed name is registered in another case", func() {
			_, err := svc.Register(context.Background(), registration("VECTOR VIPERS"))

			Convey("Then the injected index accepts it", func() {
				So(err, ShouldBeNil)
				So(exact.Size(), ShouldEqual, 6)
				So(svc.GetStats()["indexedNames"], ShouldEqual, 6)
			})
		})
	})
}

func TestService_ConcurrentRegistrations(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startService()
		defer svc.Stop()

		Convey("When many clients race for one name", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			wins, dups := 0, 0
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Register(context.Background(), registration("Photo Finish"))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						wins++
					case errors.Is(err, repository.ErrDuplicateTeam):
						dups++
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one should win", func() {
				So(wins, ShouldEqual, 1)
				So(dups, ShouldEqual, 49)
			})
		})
	})
}
