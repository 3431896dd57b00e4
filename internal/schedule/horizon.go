package schedule

import "time"

// Horizon returns local midnight of tomorrow and the exclusive end of the
// bookable window, which includes the day `days` after tomorrow.
func Horizon(now time.Time, loc *time.Location, days int) (from, until time.Time) {
	local := now.In(loc)
	from = time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	until = time.Date(local.Year(), local.Month(), local.Day()+days+2, 0, 0, 0, 0, loc)
	return from, until
}
