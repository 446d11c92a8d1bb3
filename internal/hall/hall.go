// Package hall describes the fixed hall layout and per-seat pricing. The
// category of a seat is a pure function of its position, so every client
// computes the same map without storing it.
package hall

import (
	"slices"

	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/shopspring/decimal"
)

type Category string

const (
	Economy  Category = "economy"
	Standard Category = "standard"
	Premium  Category = "premium"
)

// CategoryRule assigns a category to a rectangular group of seats. An empty
// Cols list matches every seat of the listed rows.
type CategoryRule struct {
	Rows     []int
	Cols     []int
	Category Category
}

// Layout is the hall configuration: dimensions, category rules (first match
// wins, falling back to Default), and base prices per category.
type Layout struct {
	Rows        int
	SeatsPerRow int
	Rules       []CategoryRule
	Default     Category
	Prices      map[Category]decimal.Decimal
}

// Default returns the single-screen hall: 10 rows of 10 seats, row 1 economy,
// the center block of rows 4-6 premium, everything else standard.
func Default() Layout {
	return Layout{
		Rows:        10,
		SeatsPerRow: 10,
		Rules: []CategoryRule{
			{Rows: []int{1}, Category: Economy},
			{Rows: []int{4, 5, 6}, Cols: []int{4, 5, 6, 7}, Category: Premium},
		},
		Default: Standard,
		Prices: map[Category]decimal.Decimal{
			Economy:  decimal.NewFromInt(200),
			Standard: decimal.NewFromInt(350),
			Premium:  decimal.NewFromInt(500),
		},
	}
}

// Contains reports whether the seat exists in the hall.
func (l Layout) Contains(seat domain.SeatID) bool {
	return seat.Row >= 1 && seat.Row <= l.Rows && seat.Col >= 1 && seat.Col <= l.SeatsPerRow
}

// Category resolves the pricing category of a seat.
func (l Layout) Category(seat domain.SeatID) Category {
	for _, rule := range l.Rules {
		if !slices.Contains(rule.Rows, seat.Row) {
			continue
		}

		if len(rule.Cols) == 0 || slices.Contains(rule.Cols, seat.Col) {
			return rule.Category
		}
	}

	return l.Default
}

// Price returns the base price of a seat.
func (l Layout) Price(seat domain.SeatID) decimal.Decimal {
	return l.Prices[l.Category(seat)]
}

// TotalPrice sums the prices of a seat selection.
func (l Layout) TotalPrice(seats []domain.SeatID) decimal.Decimal {
	total := decimal.Zero

	for _, seat := range seats {
		total = total.Add(l.Price(seat))
	}

	return total
}

func (l Layout) TotalSeats() int {
	return l.Rows * l.SeatsPerRow
}

// PriceRange returns the cheapest and most expensive seat prices of the hall.
func (l Layout) PriceRange() domain.PriceRange {
	var prices []decimal.Decimal
	for _, price := range l.Prices {
		prices = append(prices, price)
	}

	priceRange := domain.PriceRange{Min: prices[0], Max: prices[0]}

	for _, price := range prices[1:] {
		if price.LessThan(priceRange.Min) {
			priceRange.Min = price
		}
		if price.GreaterThan(priceRange.Max) {
			priceRange.Max = price
		}
	}

	return priceRange
}
