package newseoul

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/bhc880510-bsk/newseoul-booking/internal/teetime"
)

// Reserve issues the doReservation write for one slot. It returns (true, nil)
// on a confirmed booking, (false, nil) when the controller explicitly
// rejected it — a logical rejection is never retried, retrying risks
// rate-limiting or a duplicate booking — and (false, err) when transport or
// parse failures exhausted the attempt budget.
func (c *Client) Reserve(ctx context.Context, date string, s teetime.Slot) (bool, error) {
	display := teetime.FormatForDisplay(s.Time)
	c.log.Infof("attempting reservation: %s %s...", s.CourseName, display)

	form := url.Values{
		"method":               {"doReservation"},
		"coDiv":                {coDiv},
		"day":                  {date},
		"cos":                  {s.Course},
		"time":                 {s.Time},
		"roundf":               {"1"},
		"charge":               {"18"},
		"media":                {"R"},
		"verify_entity_id":     {""},
		"verify_entity_ip":     {""},
		"verify_entity_unique": {verifyEntityUnique},
		"member_id":            {c.memberID},
	}

	var lastErr error
	for attempt := 1; attempt <= c.reserveAttempts; attempt++ {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		status, body, err := c.postForm(ctx, reservationPath, reserveRefererPath, form)
		if err == nil && status >= 400 {
			err = httpStatusErr(status)
		}
		if err != nil {
			lastErr = err
			backoff := c.networkBackoff
			if isTimeout(err) {
				backoff = c.timeoutBackoff
			}
			c.log.Warnf("reservation request failed (%s %s, %d/%d): %v", s.CourseName, display, attempt, c.reserveAttempts, err)
			if attempt < c.reserveAttempts {
				c.pause(ctx, backoff)
			}
			continue
		}

		var res reservationResponse
		if err := json.Unmarshal(body, &res); err != nil {
			lastErr = fmt.Errorf("parse reservation response: %w", err)
			c.log.Warnf("reservation response parse failed (%d/%d): %v, body: %.200s", attempt, c.reserveAttempts, err, string(body))
			if attempt < c.reserveAttempts {
				c.pause(ctx, c.timeoutBackoff)
			}
			continue
		}

		c.log.Infof("reservation response: %s", string(body))
		if res.success() {
			c.log.Infof("reservation confirmed: %s %s", s.CourseName, display)
			c.log.Infof("waiting %s for the server to settle...", c.settleDelay)
			c.pause(ctx, c.settleDelay)
			return true, nil
		}
		c.log.Warnf("reservation rejected (%s %s): %s", s.CourseName, display, res.failureReason())
		return false, nil
	}
	return false, fmt.Errorf("reservation attempt exhausted: %w", lastErr)
}
