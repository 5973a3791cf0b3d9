package newseoul

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/bhc880510-bsk/newseoul-booking/internal/teetime"
)

// FetchTeeTimes queries every course's slots for the date (YYYYMMDD) in a
// single getTeeList call and returns them normalized and deduplicated,
// bookable or not. A controller-level error code yields an empty list without
// retrying: an error code is a logical rejection, not transience. Network and
// parse failures are retried within the attempt budget.
func (c *Client) FetchTeeTimes(ctx context.Context, date string) ([]teetime.Slot, error) {
	c.log.Infof("fetching tee times for %s, all courses...", date)

	form := url.Values{
		"method": {"getTeeList"},
		"coDiv":  {coDiv},
		"date":   {date},
		"cos":    {"All"},
		"roundf": {""},
	}

	for attempt := 1; attempt <= c.fetchAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		status, body, err := c.postForm(ctx, reservationPath, reserPagePath, form)
		if err == nil && status >= 400 {
			err = httpStatusErr(status)
		}
		if err != nil {
			c.log.Warnf("tee list request failed (%d/%d): %v", attempt, c.fetchAttempts, err)
			c.pause(ctx, c.fetchNetBackoff)
			continue
		}

		var res teeListResponse
		if err := json.Unmarshal(body, &res); err != nil {
			c.log.Warnf("tee list parse failed (%d/%d): %v, body: %.200s", attempt, c.fetchAttempts, err, string(body))
			c.pause(ctx, c.fetchParseBackoff)
			continue
		}
		if res.ResultCode != "" && res.ResultCode != "0000" {
			c.log.Warnf("tee list rejected by controller: %s", res.ResultMessage)
			return []teetime.Slot{}, nil
		}

		c.log.Infof("tee list response: %d rows", len(res.Rows))
		slots := make([]teetime.Slot, 0, len(res.Rows))
		for _, row := range res.Rows {
			course := row.Course.String()
			if course == "" {
				continue
			}
			sub := row.SubRound.String()
			if sub == "" {
				sub = teetime.DefaultSubRound(course)
			}
			avail := row.Avail.String()
			if avail == "" {
				avail = "N/A"
			}
			slots = append(slots, teetime.Slot{
				Time:       teetime.FormatForAPI(row.Time.String()),
				Course:     course,
				SubRound:   sub,
				CourseName: teetime.CourseName(course),
				Facility:   coDiv,
				Status:     avail,
			})
		}
		slots = teetime.Deduplicate(slots)
		c.log.Infof("fetched %d distinct slots (bookable and not)", len(slots))
		return slots, nil
	}
	return nil, fmt.Errorf("tee list fetch failed after %d attempts", c.fetchAttempts)
}
