package recurrence

import "time"

// Equal reports whether a and b describe the same schedule.
func Equal(a, b Rule) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Once:
		return av.RunAt.Equal(b.(Once).RunAt)
	case Daily, Weekdays:
		return true
	case Weekly:
		return sameDays(av.Days, b.(Weekly).Days)
	case Custom:
		bv := b.(Custom)
		if av.Interval != bv.Interval || av.Unit != bv.Unit {
			return false
		}
		if av.Unit == Week && !sameDays(av.Days, bv.Days) {
			return false
		}
		switch {
		case av.End == nil && bv.End == nil:
			return true
		case av.End == nil || bv.End == nil:
			return false
		}
		return sameDate(*av.End, *bv.End)
	}
	return false
}

func sameDays(a, b []time.Weekday) bool {
	a, b = normalizeDays(a), normalizeDays(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
