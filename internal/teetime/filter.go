package teetime

import (
	"fmt"
	"sort"
	"strings"
)

// Category is the operator's coarse course selection.
type Category string

const (
	CategoryAll     Category = "All"
	CategoryArt     Category = "예술" // courses A, B
	CategoryCulture Category = "문화" // courses C, D
)

var categoryCourses = map[Category][]string{
	CategoryAll:     {"A", "B", "C", "D"},
	CategoryArt:     {"A", "B"},
	CategoryCulture: {"C", "D"},
}

// Courses expands a category to its concrete course codes. An unknown value
// is treated as a literal course code so a single-course filter still works.
func (c Category) Courses() []string {
	if codes, ok := categoryCourses[c]; ok {
		return codes
	}
	return []string{string(c)}
}

// Direction orders the candidate list by tee time.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Window is the operator's acceptable tee-time range, both bounds inclusive.
// Bounds are compared lexicographically against the HHMM slot time, which is
// valid because both sides share the fixed-width zero-padded encoding.
type Window struct {
	Start string // HH:MM or HHMM
	End   string
}

// FilterAndRank narrows slots to the window, course set and bookable status,
// then sorts them into attempt priority. The primary key is tee time in the
// requested direction; ties always break by course code ascending so the
// ranking is deterministic either way. Slots that match the window and course
// but are not bookable come back in excluded for operator visibility.
func FilterAndRank(slots []Slot, w Window, cat Category, dir Direction) (ranked, excluded []Slot) {
	start := FormatForAPI(w.Start)
	end := FormatForAPI(w.End)

	courses := make(map[string]bool)
	for _, c := range cat.Courses() {
		courses[c] = true
	}

	for _, s := range slots {
		if s.Time < start || s.Time > end {
			continue
		}
		if cat != CategoryAll && !courses[s.Course] {
			continue
		}
		if !s.Bookable() {
			excluded = append(excluded, s)
			continue
		}
		ranked = append(ranked, s)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Time != ranked[j].Time {
			if dir == Descending {
				return ranked[i].Time > ranked[j].Time
			}
			return ranked[i].Time < ranked[j].Time
		}
		return ranked[i].Course < ranked[j].Course
	})
	return ranked, excluded
}

// DigestByCourse renders one line per course in display order listing the
// distinct tee times fetched for it, bookable or not. Used for the
// post-fetch operator digest.
func DigestByCourse(slots []Slot) []string {
	byCourse := make(map[string]map[string]bool)
	for _, s := range slots {
		if byCourse[s.Course] == nil {
			byCourse[s.Course] = make(map[string]bool)
		}
		byCourse[s.Course][s.Time] = true
	}

	var lines []string
	for _, code := range CourseOrder {
		times := byCourse[code]
		if len(times) == 0 {
			continue
		}
		sorted := make([]string, 0, len(times))
		for t := range times {
			sorted = append(sorted, t)
		}
		sort.Strings(sorted)
		for i, t := range sorted {
			sorted[i] = "'" + FormatForDisplay(t) + "'"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", CourseName(code), strings.Join(sorted, ", ")))
	}
	return lines
}
