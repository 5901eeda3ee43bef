package domain

import "strings"

type BookableEntity struct {
	ID              string
	Category        string
	Name            string
	SubCategory     string
	Capacity        int
	CurrentBookings int
	DepositRequired float64
	PayoutAddress   string
}

func (e *BookableEntity) RemainingSeats() int {
	return e.Capacity - e.CurrentBookings
}

func (e *BookableEntity) HasSeats() bool {
	return e.RemainingSeats() > 0
}

// MatchesName compares names ignoring case and surrounding whitespace.
func (e *BookableEntity) MatchesName(name string) bool {
	return NormalizeName(e.Name) == NormalizeName(name)
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type EntitySummary struct {
	ID       string
	Name     string
	Category string
}

type Availability struct {
	AvailableSeats  int
	TotalCapacity   int
	DepositRequired float64
	PayoutAddress   string
	Entity          BookableEntity
	Note            string
}
