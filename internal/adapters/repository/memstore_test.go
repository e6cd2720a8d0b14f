package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/roboheist/backend/internal/domain/model"
	"github.com/roboheist/backend/internal/domain/scoring"
)

func newSeededStore(t *testing.T, opts ...Option) *MemoryStore {
	t.Helper()
	opts = append([]Option{WithSeed(model.SeedTeams())}, opts...)
	return NewMemoryStore(context.Background(), opts...)
}

func reg(team string) model.Registration {
	return model.Registration{Team: team, Institution: "Tech U", Email: "c@d.com", Members: []string{}}
}

func TestMemoryStore_SeededLeaderboard(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	if count := store.Count(ctx); count != 5 {
		t.Fatalf("expected 5 seed teams, got %d", count)
	}

	teams, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if teams[0].Team != "Vector Vipers" || teams[0].Score != 92 {
		t.Errorf("expected Vector Vipers (92) first, got %+v", teams[0])
	}
	if last := teams[len(teams)-1]; last.Team != "Circuit Cartel" || last.Score != 70 {
		t.Errorf("expected Circuit Cartel (70) last, got %+v", last)
	}
}

func TestMemoryStore_EmptyStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx)

	teams, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(teams) != 0 {
		t.Errorf("expected empty leaderboard, got %d", len(teams))
	}

	team, err := store.Register(ctx, reg("First Crew"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team.ID != "t1" {
		t.Errorf("expected id t1, got %s", team.ID)
	}
}

func TestMemoryStore_Register(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	team, err := store.Register(ctx, reg("New Crew"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team.ID != "t6" {
		t.Errorf("expected id t6, got %s", team.ID)
	}
	if team.Team != "New Crew" {
		t.Errorf("expected team New Crew, got %s", team.Team)
	}
	if team.Score < 50 || team.Score > 95 {
		t.Errorf("score %d outside [50, 95]", team.Score)
	}
	if count := store.Count(ctx); count != 6 {
		t.Errorf("expected 6 teams, got %d", count)
	}

	teams, _ := store.List(ctx)
	found := false
	for _, tm := range teams {
		if tm.ID == "t6" && tm.Team == "New Crew" {
			found = true
		}
	}
	if !found {
		t.Error("registered team missing from leaderboard")
	}
}

func TestMemoryStore_DuplicateIgnoresCase(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	for _, name := range []string{"Vector Vipers", "vector vipers", "VECTOR VIPERS", "vEcToR vIpErS"} {
		_, err := store.Register(ctx, reg(name))
		if !errors.Is(err, ErrDuplicateTeam) {
			t.Fatalf("%q: expected ErrDuplicateTeam, got %v", name, err)
		}
		var dup *DuplicateTeamError
		if !errors.As(err, &dup) || dup.Team != name {
			t.Errorf("%q: expected DuplicateTeamError carrying the name, got %v", name, err)
		}
		if count := store.Count(ctx); count != 5 {
			t.Errorf("%q: duplicate changed store size to %d", name, count)
		}
	}

	// A name registered at runtime is protected the same way.
	if _, err := store.Register(ctx, reg("New Crew")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Register(ctx, reg("NEW CREW")); !errors.Is(err, ErrDuplicateTeam) {
		t.Errorf("expected duplicate for runtime registration, got %v", err)
	}
}

func TestMemoryStore_DuplicateUsesLowercaseNotFolding(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx)

	pairs := [][2]string{
		{"Straße Crew", "STRASSE CREW"},
		{"ΟΔΟΣ", "οδοσ"},
	}
	for _, p := range pairs {
		if _, err := store.Register(ctx, reg(p[0])); err != nil {
			t.Fatalf("%q: unexpected error: %v", p[0], err)
		}
		if _, err := store.Register(ctx, reg(p[1])); err != nil {
			t.Errorf("%q after %q: expected a distinct team, got %v", p[1], p[0], err)
		}
	}
	if count := store.Count(ctx); count != 4 {
		t.Errorf("expected 4 teams, got %d", count)
	}

	if _, err := store.Register(ctx, reg("straße crew")); !errors.Is(err, ErrDuplicateTeam) {
		t.Errorf("expected duplicate for lowercase variant, got %v", err)
	}
}

func TestMemoryStore_StableOrderingOnTies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx, WithScorer(scoring.Fixed(80)), WithSeed(model.SeedTeams()))

	for _, name := range []string{"Tie A", "Tie B", "Tie C"} {
		if _, err := store.Register(ctx, reg(name)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	teams, _ := store.List(ctx)
	var at80 []string
	for _, tm := range teams {
		if tm.Score == 80 {
			at80 = append(at80, tm.Team)
		}
	}
	want := []string{"Servo Saints", "Tie A", "Tie B", "Tie C"}
	if strings.Join(at80, ",") != strings.Join(want, ",") {
		t.Errorf("ties should keep insertion order: got %v, want %v", at80, want)
	}
}

func TestMemoryStore_SortedDescending(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t, WithScorer(scoring.NewRandomScorer(scoring.WithSeed(99))))

	for i := 0; i < 200; i++ {
		if _, err := store.Register(ctx, reg(fmt.Sprintf("Crew %d", i))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	teams, _ := store.List(ctx)
	for i := 1; i < len(teams); i++ {
		if teams[i-1].Score < teams[i].Score {
			t.Fatalf("not sorted at %d: %d < %d", i, teams[i-1].Score, teams[i].Score)
		}
	}
}

func TestMemoryStore_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	teams, _ := store.List(ctx)
	teams[0].Team = "mutated"

	again, _ := store.List(ctx)
	if again[0].Team != "Vector Vipers" {
		t.Errorf("caller mutation leaked into store: %+v", again[0])
	}
}

type failingScorer struct{}

func (failingScorer) Score(context.Context, scoring.Input) (scoring.Result, error) {
	return scoring.Result{}, errors.New("scoring backend down")
}

func TestMemoryStore_ScoringFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t, WithScorer(failingScorer{}))

	if _, err := store.Register(ctx, reg("Ghost Crew")); err == nil {
		t.Fatal("expected scoring error")
	}
	if count := store.Count(ctx); count != 5 {
		t.Errorf("failed registration changed store size to %d", count)
	}

	// The name must still be free after the failure.
	store.scorer = scoring.Fixed(60)
	if _, err := store.Register(ctx, reg("Ghost Crew")); err != nil {
		t.Errorf("name should be available after rollback: %v", err)
	}
}

func TestMemoryStore_SeedSkipsDuplicatesAndAssignsIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx, WithSeed([]model.TeamScore{
		{Team: "Alpha", Score: 10},
		{Team: "ALPHA", Score: 20},
		{ID: "t3", Team: "Gamma", Score: 30},
	}))

	if count := store.Count(ctx); count != 2 {
		t.Fatalf("expected 2 teams after dedupe, got %d", count)
	}

	// t3 is taken by the seed, so the next id skips it.
	team, err := store.Register(ctx, reg("Delta"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team.ID != "t4" {
		t.Errorf("expected id t4, got %s", team.ID)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := newSeededStore(t)
	cancel()

	if _, err := store.List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled from List, got %v", err)
	}
	if _, err := store.Register(ctx, reg("Late Crew")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled from Register, got %v", err)
	}
	if count := store.Count(context.Background()); count != 5 {
		t.Errorf("cancelled registration changed store size to %d", count)
	}
}

func TestMemoryStore_ConcurrentRegistrations(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	const goroutines = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	// Every goroutine races for the same name in a different case.
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "Race Crew"
			if i%2 == 0 {
				name = strings.ToUpper(name)
			}
			if _, err := store.Register(ctx, reg(name)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}

	// Distinct names registered concurrently must all land with unique ids.
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Register(ctx, reg(fmt.Sprintf("Unique %d", i))); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("expected exactly one winner for the contested name, got %d", succeeded)
	}
	if count := store.Count(ctx); count != 5+1+goroutines {
		t.Errorf("expected %d teams, got %d", 5+1+goroutines, count)
	}

	teams, _ := store.List(ctx)
	ids := make(map[string]bool, len(teams))
	for _, tm := range teams {
		if ids[tm.ID] {
			t.Fatalf("duplicate id %s", tm.ID)
		}
		ids[tm.ID] = true
	}
}
