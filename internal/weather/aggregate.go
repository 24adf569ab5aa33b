package weather

import "math"

const (
	maxHourlyEntries = 6
	maxDailyEntries  = 3
)

// Aggregate turns the chronological forecast buckets into the hourly scroll
// (first six buckets) and the daily outlook (first three calendar dates).
// Dates and labels are taken in each sample's own time zone.
func Aggregate(samples []RawForecastSample) ([]HourlyEntry, []DailyEntry) {
	hourly := make([]HourlyEntry, 0, maxHourlyEntries)
	daily := make([]DailyEntry, 0, maxDailyEntries)
	if len(samples) == 0 {
		return hourly, daily
	}

	for _, s := range samples {
		if len(hourly) == maxHourlyEntries {
			break
		}
		hourly = append(hourly, HourlyEntry{
			Hour:        s.Timestamp.Format("3PM"),
			Temperature: roundTemp(s.Temperature),
			Condition:   s.Condition,
		})
	}

	for _, g := range groupByDate(samples) {
		if len(daily) == maxDailyEntries {
			break
		}
		daily = append(daily, g.summary())
	}

	return hourly, daily
}

type dayGroup struct {
	first      RawForecastSample
	temps      []float64
	conditions []Condition
}

func (g *dayGroup) summary() DailyEntry {
	high, low := g.temps[0], g.temps[0]
	for _, t := range g.temps[1:] {
		high = math.Max(high, t)
		low = math.Min(low, t)
	}
	return DailyEntry{
		Day:       g.first.Timestamp.Format("Mon"),
		Date:      g.first.Timestamp.Format("01/02"),
		High:      roundTemp(high),
		Low:       roundTemp(low),
		Condition: dominantCondition(g.conditions),
	}
}

// groupByDate buckets samples by calendar date, keeping first-seen date order.
func groupByDate(samples []RawForecastSample) []*dayGroup {
	var groups []*dayGroup
	index := make(map[string]*dayGroup)

	for _, s := range samples {
		key := s.Timestamp.Format("2006-01-02")
		g, ok := index[key]
		if !ok {
			g = &dayGroup{first: s}
			index[key] = g
			groups = append(groups, g)
		}
		g.temps = append(g.temps, s.Temperature)
		g.conditions = append(g.conditions, s.Condition)
	}
	return groups
}

// dominantCondition returns the most frequent condition. The first condition
// to reach the winning count in iteration order wins ties.
func dominantCondition(conditions []Condition) Condition {
	counts := make(map[Condition]int, len(conditions))
	order := make([]Condition, 0, len(conditions))
	for _, c := range conditions {
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	best := ConditionUnknown
	bestCount := 0
	for _, c := range order {
		if counts[c] > bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}

// roundTemp rounds half away from zero, matching how temperatures are shown.
func roundTemp(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}
