package domain

import "time"

const hoursPerDay = 24

// CumulativeState is the running energy total of one conversion run,
// analogous to the dial of a physical meter. The zero value starts at 0.
type CumulativeState struct {
	total float64
}

// Add folds an hourly sum into the total and returns the new total.
func (s *CumulativeState) Add(v float64) float64 {
	s.total += v
	return s.total
}

// Total returns the unrounded running total.
func (s *CumulativeState) Total() float64 {
	return s.total
}

// Aggregate groups a day's readings into hourly buckets, adds each bucket to
// state and emits one statistic per hour in ascending order. Hours stop at
// the first bucket that starts past the available readings; a trailing
// bucket with fewer readings than an hour holds is summed as-is. It returns
// the number of statistics emitted, stopping early if emit fails.
func Aggregate(day DailyIntervalRow, intervalLength int, state *CumulativeState, emit func(HourlyStatistic) error) (int, error) {
	perHour := IntervalsPerHour(intervalLength)
	n := len(day.Readings)

	emitted := 0
	for hour := range hoursPerDay {
		start := hour * perHour
		if start >= n {
			break
		}
		end := min(start+perHour, n)

		var sum float64
		for _, v := range day.Readings[start:end] {
			sum += v
		}

		value := RoundEnergy(state.Add(sum))
		stat := HourlyStatistic{
			Unit:  EnergyUnit,
			Start: day.Date.Add(time.Duration(hour) * time.Hour),
			State: value,
			Sum:   value,
		}
		if err := emit(stat); err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}
