package attendance

// Day maps a student id to presence for one date.
type Day map[string]bool

// Record is a mentor's sparse attendance history keyed by DateKey. A missing
// date means no attendance was taken (holiday); a present date with a student
// set to false means absent.
type Record map[string]Day

// Day looks up a date. The boolean is false when no attendance was taken.
func (r Record) Day(key string) (Day, bool) {
	if r == nil {
		return nil, false
	}
	day, ok := r[key]
	return day, ok
}

// Has reports whether attendance was taken on key.
func (r Record) Has(key string) bool {
	_, ok := r.Day(key)
	return ok
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for key, day := range r {
		out[key] = day.Clone()
	}
	return out
}

// Clone returns a copy of the day.
func (d Day) Clone() Day {
	out := make(Day, len(d))
	for id, present := range d {
		out[id] = present
	}
	return out
}

// Merge returns a new record with entries folded into the given date one
// student at a time. Other dates and other students on the same date are
// preserved; the input record is not modified.
func Merge(record Record, key string, entries Day) Record {
	out := record.Clone()
	day, ok := out[key]
	if !ok {
		day = make(Day, len(entries))
	}
	for id, present := range entries {
		day[id] = present
	}
	out[key] = day
	return out
}
