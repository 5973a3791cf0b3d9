package newseoul

import (
	"context"
	"net/http"
	"time"
)

// ServerClockOffset samples the server's Date header and returns
// serverTime - localTime. Subtracting the offset from the nominal opening
// instant gives the local deadline at which a request reaches the server at
// the true opening time. All retries exhausted degrades to zero offset; a
// missed correction is safer than an aborted run.
func (c *Client) ServerClockOffset(ctx context.Context) time.Duration {
	c.log.Infof("probing server clock...")
	for attempt := 1; attempt <= c.clockProbes; attempt++ {
		if ctx.Err() != nil {
			return 0
		}
		res, err := c.getPage(ctx, keepAlivePath)
		if err != nil {
			c.log.Warnf("server clock probe failed (%d/%d): %v", attempt, c.clockProbes, err)
			c.pause(ctx, c.clockBackoff)
			continue
		}
		dateHeader := res.Header.Get("Date")
		if dateHeader == "" {
			c.log.Warnf("server clock probe missing Date header (%d/%d)", attempt, c.clockProbes)
			c.pause(ctx, c.clockBackoff)
			continue
		}
		serverTime, err := http.ParseTime(dateHeader)
		if err != nil {
			c.log.Warnf("server clock probe bad Date header %q (%d/%d)", dateHeader, attempt, c.clockProbes)
			c.pause(ctx, c.clockBackoff)
			continue
		}
		local := c.now()
		offset := serverTime.Sub(local)
		c.log.Infof("server clock: server=%s local=%s offset=%.3fs",
			serverTime.In(c.loc).Format("15:04:05.000"),
			local.In(c.loc).Format("15:04:05.000"),
			offset.Seconds())
		return offset
	}
	c.log.Warnf("server clock probe exhausted, proceeding without correction")
	return 0
}
