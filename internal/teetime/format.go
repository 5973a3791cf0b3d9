package teetime

import "strings"

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatForAPI normalizes an operator- or server-supplied time to the 4-digit
// HHMM form the controller expects. Malformed input yields "0000", a
// recognizable sentinel, never an error.
func FormatForAPI(t string) string {
	t = strings.ReplaceAll(strings.TrimSpace(t), ":", "")
	if allDigits(t) {
		switch len(t) {
		case 4:
			return t
		case 3:
			return "0" + t
		}
	}
	return "0000"
}

// FormatForDisplay renders HHMM (or HH:MM) as HH:MM for log lines. Unexpected
// input comes back unchanged.
func FormatForDisplay(t string) string {
	trimmed := strings.ReplaceAll(strings.TrimSpace(t), ":", "")
	if allDigits(trimmed) && len(trimmed) == 4 {
		return trimmed[:2] + ":" + trimmed[2:]
	}
	if len(t) == 5 && t[2] == ':' {
		return t
	}
	return t
}
