package teetime

import (
	"reflect"
	"testing"
)

func bookable(time, course, sub string) Slot {
	return Slot{
		Time:       time,
		Course:     course,
		SubRound:   sub,
		CourseName: CourseName(course),
		Facility:   "204",
		Status:     StatusBookable,
	}
}

func TestDeduplicateKeepsFirstOccurrence(t *testing.T) {
	first := bookable("0700", "A", "1")
	dup := bookable("0700", "A", "1")
	dup.Status = "X" // same key, different payload; first must win
	other := bookable("0730", "C", "2")

	got := Deduplicate([]Slot{first, dup, other})
	want := []Slot{first, other}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Deduplicate = %v, want %v", got, want)
	}
}

func TestFilterAndRankAscending(t *testing.T) {
	slots := Deduplicate([]Slot{
		bookable("0700", "A", "1"),
		bookable("0700", "A", "1"),
		bookable("0730", "C", "2"),
	})
	ranked, excluded := FilterAndRank(slots, Window{Start: "07:00", End: "08:00"}, CategoryAll, Ascending)
	if len(excluded) != 0 {
		t.Fatalf("unexpected exclusions: %v", excluded)
	}
	if len(ranked) != 2 || ranked[0].Time != "0700" || ranked[0].Course != "A" || ranked[1].Time != "0730" || ranked[1].Course != "C" {
		t.Fatalf("ascending rank = %v", ranked)
	}
}

func TestFilterAndRankDescending(t *testing.T) {
	slots := []Slot{
		bookable("0700", "A", "1"),
		bookable("0730", "C", "2"),
	}
	ranked, _ := FilterAndRank(slots, Window{Start: "07:00", End: "08:00"}, CategoryAll, Descending)
	if len(ranked) != 2 || ranked[0].Time != "0730" || ranked[1].Time != "0700" {
		t.Fatalf("descending rank = %v", ranked)
	}
}

func TestFilterAndRankTiesBreakByCourseAscendingBothDirections(t *testing.T) {
	slots := []Slot{
		bookable("0700", "B", "2"),
		bookable("0700", "A", "1"),
		bookable("0800", "D", "2"),
		bookable("0800", "C", "2"),
	}
	for _, dir := range []Direction{Ascending, Descending} {
		ranked, _ := FilterAndRank(slots, Window{Start: "0600", End: "0900"}, CategoryAll, dir)
		if len(ranked) != 4 {
			t.Fatalf("%s: rank len = %d", dir, len(ranked))
		}
		for i := 0; i < len(ranked)-1; i++ {
			a, b := ranked[i], ranked[i+1]
			if a.Time == b.Time && a.Course > b.Course {
				t.Errorf("%s: tie at %s broke descending: %s before %s", dir, a.Time, a.Course, b.Course)
			}
			if dir == Ascending && a.Time > b.Time {
				t.Errorf("ascending order violated: %s before %s", a.Time, b.Time)
			}
			if dir == Descending && a.Time < b.Time {
				t.Errorf("descending order violated: %s before %s", a.Time, b.Time)
			}
		}
	}
}

func TestFilterExcludesNotBookable(t *testing.T) {
	closed := bookable("0730", "A", "1")
	closed.Status = "X"
	unknown := bookable("0745", "B", "2")
	unknown.Status = "N/A"

	ranked, excluded := FilterAndRank(
		[]Slot{bookable("0700", "A", "1"), closed, unknown},
		Window{Start: "07:00", End: "08:00"}, CategoryAll, Ascending,
	)
	if len(ranked) != 1 || ranked[0].Time != "0700" {
		t.Fatalf("ranked = %v", ranked)
	}
	if len(excluded) != 2 {
		t.Fatalf("excluded = %v, want the X and N/A slots", excluded)
	}
}

func TestFilterWindowInclusiveAndCourseCategory(t *testing.T) {
	slots := []Slot{
		bookable("0700", "A", "1"), // window start, art
		bookable("0800", "C", "1"), // window end, culture
		bookable("0801", "A", "1"), // past window
	}
	ranked, _ := FilterAndRank(slots, Window{Start: "0700", End: "0800"}, CategoryArt, Ascending)
	if len(ranked) != 1 || ranked[0].Course != "A" {
		t.Fatalf("art category rank = %v", ranked)
	}
	ranked, _ = FilterAndRank(slots, Window{Start: "0700", End: "0800"}, CategoryCulture, Ascending)
	if len(ranked) != 1 || ranked[0].Course != "C" {
		t.Fatalf("culture category rank = %v", ranked)
	}
}

func TestFilterAndRankIdempotent(t *testing.T) {
	slots := []Slot{
		bookable("0830", "D", "2"),
		bookable("0700", "A", "1"),
		bookable("0700", "B", "2"),
	}
	w := Window{Start: "0600", End: "0900"}
	once, _ := FilterAndRank(slots, w, CategoryAll, Descending)
	twice, _ := FilterAndRank(once, w, CategoryAll, Descending)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("refiltering changed result: %v vs %v", once, twice)
	}
}

func TestDigestByCourse(t *testing.T) {
	closed := bookable("0710", "A", "1")
	closed.Status = "X"
	lines := DigestByCourse([]Slot{
		bookable("0730", "C", "2"),
		bookable("0700", "A", "1"),
		closed,
	})
	want := []string{
		"[예술OUT] '07:00', '07:10'",
		"[문화OUT] '07:30'",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("digest = %v, want %v", lines, want)
	}
}
