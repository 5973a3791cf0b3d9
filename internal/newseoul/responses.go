package newseoul

import (
	"encoding/json"
	"strings"
)

// flexString tolerates the classic-ASP controllers returning a field as a
// string on one path and a bare number on another.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*f = ""
		return nil
	}
	*f = flexString(raw)
	return nil
}

func (f flexString) String() string { return string(f) }

type teeListResponse struct {
	ResultCode    string   `json:"resultCode"`
	ResultMessage string   `json:"resultMessage"`
	Rows          []teeRow `json:"rows"`
}

type teeRow struct {
	Time     flexString `json:"BK_TIME"`
	Course   flexString `json:"BK_COS"`
	SubRound flexString `json:"BK_PART"`
	Avail    flexString `json:"R"`
}

type reservationResponse struct {
	ResultCode    string `json:"resultCode"`
	R             string `json:"R"`
	Status        string `json:"status"`
	ResultMessage string `json:"resultMessage"`
	Message       string `json:"message"`
}

// success checks every marker the site is known to signal success with. The
// controller is inconsistent across response paths; dropping any one of
// these produces false negatives on real bookings.
func (r reservationResponse) success() bool {
	return r.ResultCode == "0000" || r.R == "OK" || r.Status == "success"
}

func (r reservationResponse) failureReason() string {
	if r.ResultMessage != "" {
		return r.ResultMessage
	}
	if r.Message != "" {
		return r.Message
	}
	return "unrecognized controller response"
}
