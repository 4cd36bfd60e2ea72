package service

import (
	"fmt"
	"math"
	"time"

	"perception-study/internal/study/models"
)

// Timing describes the main study between start and end. A negative span
// counts as zero.
func Timing(start, end time.Time) models.StudyTiming {
	d := end.Sub(start)
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()

	return models.StudyTiming{
		StartTime:            start.UnixMilli(),
		EndTime:              end.UnixMilli(),
		TotalDurationMs:      ms,
		TotalDurationSeconds: roundDiv(ms, 1000),
		TotalDurationMinutes: roundDiv(ms, 60000),
		FormattedDuration:    FormatDuration(ms),
	}
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func roundDiv(n, d int64) int64 {
	return int64(math.Round(float64(n) / float64(d)))
}
