package quiz

import "time"

// NextStreak returns the daily streak after completing a quiz on today.
// It is a pure function of the profile's last quiz date and current streak:
//
//	no prior date            -> 1
//	prior date == yesterday  -> currentStreak + 1
//	prior date == today      -> currentStreak (a second quiz the same day)
//	anything else            -> 1 (gap of two or more days, or a future date)
func NextStreak(lastQuizDate *time.Time, currentStreak int, today time.Time) int {
	if lastQuizDate == nil {
		return 1
	}
	last := DateOnly(*lastQuizDate)
	day := DateOnly(today)
	switch {
	case last.Equal(day):
		return currentStreak
	case last.Equal(day.AddDate(0, 0, -1)):
		return currentStreak + 1
	default:
		return 1
	}
}

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
