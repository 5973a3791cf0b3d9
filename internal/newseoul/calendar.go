package newseoul

import (
	"context"
	"encoding/json"
	"net/url"
)

// PrimeCalendar asks the controller to load the target month's schedule,
// forcing the server-side session into the state the tee list query depends
// on. Priming is an optimization: every failure returns false and is logged,
// the run proceeds either way and just risks a slower first real query.
func (c *Client) PrimeCalendar(ctx context.Context, date string) bool {
	if len(date) < 6 {
		c.log.Warnf("calendar priming skipped: bad date %q", date)
		return false
	}
	selYm := date[:6]
	c.log.Infof("priming session with %s calendar...", selYm)

	form := url.Values{
		"method": {"getCalendar"},
		"coDiv":  {coDiv},
		"selYm":  {selYm},
		"mCos":   {"All"},
	}
	status, body, err := c.postForm(ctx, reservationPath, reserPagePath, form)
	if err != nil {
		c.log.Warnf("calendar priming request failed: %v", err)
		return false
	}
	if status >= 400 {
		c.log.Warnf("calendar priming request failed: %v", httpStatusErr(status))
		return false
	}
	if !json.Valid(body) {
		c.log.Warnf("calendar priming response is not valid JSON: %.50s", string(body))
		return false
	}
	c.log.Infof("calendar primed, session active for %s", selYm)
	return true
}
