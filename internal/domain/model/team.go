// Package model contains domain models passed between layers.
package model

import "strconv"

// TeamScore is one registered team and its score. Records are created at
// startup or by registration and are never mutated afterwards.
type TeamScore struct {
	ID    string
	Team  string
	Score int
}

// Registration carries the fields of an accepted registration request.
type Registration struct {
	Team        string
	Institution string
	Email       string
	Members     []string
}

// TeamID formats the sequential id for the n-th team, starting at 1.
func TeamID(n int) string {
	return "t" + strconv.Itoa(n)
}

// SeedTeams returns the demo teams loaded at process start, in insertion order.
func SeedTeams() []TeamScore {
	return []TeamScore{
		{ID: TeamID(1), Team: "Vector Vipers", Score: 92},
		{ID: TeamID(2), Team: "Quantum Crew", Score: 88},
		{ID: TeamID(3), Team: "Servo Saints", Score: 80},
		{ID: TeamID(4), Team: "Neon Navigators", Score: 75},
		{ID: TeamID(5), Team: "Circuit Cartel", Score: 70},
	}
}
