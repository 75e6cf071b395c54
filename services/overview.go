package services

import (
	"context"
	"fmt"
	"time"
)

type PeriodComparison struct {
	Previous         int64  `json:"previous"`
	Current          int64  `json:"current"`
	PercentageChange string `json:"percentage_change"`
}

type Overview struct {
	UserCount   int64            `json:"user_count"`
	PollCount   int64            `json:"poll_count"`
	LevelCounts map[int]int64    `json:"level_counts"`
	TotalCoins  int64            `json:"total_coins"`
	TotalEnergy int64            `json:"total_energy"`
	Weekly      PeriodComparison `json:"weekly"`
	Monthly     PeriodComparison `json:"monthly"`
	Yearly      PeriodComparison `json:"yearly"`
}

var overviewLevels = []int{1, 2, 3}

func percentageChange(previous, current int64) string {
	if previous == 0 {
		if current > 0 {
			return "+100%"
		}
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(current-previous)/float64(previous)*100)
}

type period struct {
	start, end time.Time
}

// periods returns the previous and current calendar week (starting Sunday),
// month and year around now.
func periods(now time.Time) (week, month, year [2]period) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	weekStart := day.AddDate(0, 0, -int(day.Weekday()))
	week = [2]period{
		{weekStart.AddDate(0, 0, -7), weekStart.Add(-time.Nanosecond)},
		{weekStart, weekStart.AddDate(0, 0, 7).Add(-time.Nanosecond)},
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	month = [2]period{
		{monthStart.AddDate(0, -1, 0), monthStart.Add(-time.Nanosecond)},
		{monthStart, monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)},
	}

	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	year = [2]period{
		{yearStart.AddDate(-1, 0, 0), yearStart.Add(-time.Nanosecond)},
		{yearStart, yearStart.AddDate(1, 0, 0).Add(-time.Nanosecond)},
	}
	return week, month, year
}

func (s *Service) compareSkips(ctx context.Context, p [2]period) (PeriodComparison, error) {
	prev, err := s.store.CountSkipsBetween(ctx, p[0].start, p[0].end)
	if err != nil {
		return PeriodComparison{}, wrap(err)
	}
	cur, err := s.store.CountSkipsBetween(ctx, p[1].start, p[1].end)
	if err != nil {
		return PeriodComparison{}, wrap(err)
	}
	return PeriodComparison{Previous: prev, Current: cur, PercentageChange: percentageChange(prev, cur)}, nil
}

// Overview summarises live users and polls, and compares skipped interactions
// across consecutive weeks, months and years.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	stats, err := s.store.UserStats(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	polls, err := s.store.CountPolls(ctx)
	if err != nil {
		return nil, wrap(err)
	}

	out := &Overview{
		UserCount:   stats.Count,
		PollCount:   polls,
		LevelCounts: make(map[int]int64, len(overviewLevels)),
		TotalCoins:  stats.TotalCoins,
		TotalEnergy: stats.TotalEnergy,
	}
	for _, l := range overviewLevels {
		out.LevelCounts[l] = stats.LevelCounts[l]
	}

	week, month, year := periods(s.now())
	if out.Weekly, err = s.compareSkips(ctx, week); err != nil {
		return nil, err
	}
	if out.Monthly, err = s.compareSkips(ctx, month); err != nil {
		return nil, err
	}
	if out.Yearly, err = s.compareSkips(ctx, year); err != nil {
		return nil, err
	}
	return out, nil
}
