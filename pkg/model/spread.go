package model

import "github.com/samber/lo"

// Spread sums, over the classes of the snapshot, the lessons of the busiest weekday minus those of the
// lightest one. It is the balance penalty read off the timetable itself.
func Spread(snapshot Snapshot, timetable Timetable) uint64 {
	daily := make(map[[2]uint64]uint64)
	for _, lesson := range timetable {
		daily[[2]uint64{lesson.Class, lesson.Weekday}]++
	}

	spread := uint64(0)
	for _, class := range snapshot.Classes {
		counts := lo.Map(snapshot.Calendar.Weekdays, func(weekday uint64, _ int) uint64 {
			return daily[[2]uint64{class.Id, weekday}]
		})
		spread += lo.Max(counts) - lo.Min(counts)
	}
	return spread
}
