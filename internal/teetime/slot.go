package teetime

// StatusBookable is the only status value the reservation controller treats
// as open for booking. Everything else ("X", "N/A", missing) is reported but
// never attempted.
const StatusBookable = "OK"

// courseNames maps New Seoul CC course codes to their display names.
var courseNames = map[string]string{
	"A": "예술OUT",
	"B": "예술IN",
	"C": "문화OUT",
	"D": "문화IN",
}

// CourseOrder is the fixed display order used when reporting fetched slots.
var CourseOrder = []string{"A", "B", "C", "D"}

// CourseName resolves a course code to its display name.
func CourseName(code string) string {
	if n, ok := courseNames[code]; ok {
		return n
	}
	return "Unknown"
}

// DefaultSubRound returns the sub-round the controller assumes when a row
// omits BK_PART: the OUT courses (A, C) start on round 1, the IN courses on 2.
func DefaultSubRound(course string) string {
	if course == "A" || course == "C" {
		return "1"
	}
	return "2"
}

// Slot is one tee time on one course for the target date. Value type; fetch
// produces fresh slices and filtering never mutates in place.
type Slot struct {
	Time       string // HHMM, zero-padded
	Course     string // course code A..D
	SubRound   string
	CourseName string
	Facility   string // coDiv of the issuing facility
	Status     string // verbatim R field from the tee list row
}

// Bookable reports whether the slot may be attempted.
func (s Slot) Bookable() bool { return s.Status == StatusBookable }

// Key identifies a slot for deduplication.
type Key struct {
	Time     string
	Course   string
	SubRound string
}

func (s Slot) Key() Key { return Key{Time: s.Time, Course: s.Course, SubRound: s.SubRound} }

// Deduplicate drops repeated (time, course, sub-round) entries, keeping the
// first occurrence. Order of survivors is the input order.
func Deduplicate(slots []Slot) []Slot {
	seen := make(map[Key]bool, len(slots))
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		k := s.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
