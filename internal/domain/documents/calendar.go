package documents

import "time"

// FiscalZone is Angolan time (WAT, UTC+1, no daylight saving). Fiscal years,
// declaration months and due days are read in it, whatever location a
// timestamp carries.
var FiscalZone = time.FixedZone("WAT", 60*60)

// FiscalYear returns the year t falls in on the Angolan calendar.
func FiscalYear(t time.Time) int {
	return t.In(FiscalZone).Year()
}

// MonthStart returns midnight WAT on the first day of year/month.
func MonthStart(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, FiscalZone)
}

func truncateDay(t time.Time) time.Time {
	y, m, day := t.In(FiscalZone).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, FiscalZone)
}
