package securities

import "time"

// usHolidays lists the full-day NYSE closures the equity calendar knows about.
var usHolidays = buildHolidaySet(
	// New Year's Day
	"1998-01-01", "1999-01-01", "2001-01-01", "2002-01-01", "2003-01-01", "2004-01-01",
	"2006-01-02", "2007-01-01", "2008-01-01", "2009-01-01", "2010-01-01", "2011-01-01",
	"2012-01-02", "2013-01-01", "2014-01-01",
	// National day of mourning
	"2007-01-02",
	// September 11
	"2001-09-11", "2001-09-12", "2001-09-13", "2001-09-14",
	// Reagan funeral
	"2004-06-11",
	// Hurricane Sandy
	"2012-10-29", "2012-10-30",
	// Martin Luther King Jr. Day
	"1998-01-19", "1999-01-18", "2000-01-17", "2001-01-15", "2002-01-21", "2003-01-20",
	"2004-01-19", "2005-01-17", "2006-01-16", "2007-01-15", "2008-01-21", "2009-01-19",
	"2010-01-18", "2011-01-17", "2012-01-16", "2013-01-21", "2014-01-20",
	// Presidents' Day
	"1998-02-16", "1999-02-15", "2000-02-21", "2001-02-19", "2002-02-18", "2003-02-17",
	"2004-02-16", "2005-02-21", "2006-02-20", "2007-02-19", "2008-02-18", "2009-02-16",
	"2010-02-15", "2011-02-21", "2012-02-20", "2013-02-18", "2014-02-17",
	// Good Friday
	"1998-04-10", "1999-04-02", "2000-04-21", "2001-04-13", "2002-03-29", "2003-04-18",
	"2004-04-09", "2005-03-25", "2006-04-14", "2007-04-06", "2008-03-21", "2009-04-10",
	"2010-04-02", "2011-04-22", "2012-04-06", "2013-03-29", "2014-04-18",
	// Memorial Day
	"1998-05-25", "1999-05-31", "2000-05-29", "2001-05-28", "2002-05-27", "2003-05-26",
	"2004-05-31", "2005-05-30", "2006-05-29", "2007-05-28", "2008-05-26", "2009-05-25",
	"2010-05-31", "2011-05-30", "2012-05-28", "2013-05-27", "2014-05-26",
	// Independence Day
	"1998-07-03", "1999-07-05", "2000-07-04", "2001-07-04", "2002-07-04", "2003-07-04",
	"2004-07-05", "2005-07-04", "2006-07-04", "2007-07-04", "2008-07-04", "2009-07-03",
	"2010-07-05", "2011-07-04", "2012-07-04", "2013-07-04", "2014-07-04",
	// Labor Day
	"1998-09-07", "1999-09-06", "2000-09-04", "2001-09-03", "2002-09-02", "2003-09-01",
	"2004-09-06", "2005-09-05", "2006-09-04", "2007-09-03", "2008-09-01", "2009-09-07",
	"2010-09-06", "2011-09-05", "2012-09-03", "2013-09-02", "2014-09-01",
	// Thanksgiving
	"1998-11-26", "1999-11-25", "2000-11-23", "2001-11-22", "2002-11-28", "2003-11-27",
	"2004-11-25", "2005-11-24", "2006-11-23", "2007-11-22", "2008-11-27", "2009-11-26",
	"2010-11-25", "2011-11-24", "2012-11-22", "2013-11-28", "2014-11-27",
	// Christmas
	"1998-12-25", "1999-12-24", "2000-12-25", "2001-12-25", "2002-12-25", "2003-12-25",
	"2004-12-24", "2005-12-26", "2006-12-25", "2007-12-25", "2008-12-25", "2009-12-25",
	"2010-12-24", "2011-12-26", "2012-12-25", "2013-12-25", "2014-12-25",
)

func buildHolidaySet(dates ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			panic("securities: bad holiday date " + d)
		}
		set[d] = struct{}{}
	}
	return set
}

// IsUSHoliday reports whether t falls on a listed exchange holiday.
func IsUSHoliday(t time.Time) bool {
	_, ok := usHolidays[t.Format(time.DateOnly)]
	return ok
}
