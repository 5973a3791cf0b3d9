package newseoul

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

func hashSecret(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:])
}

// Login establishes the authenticated session: it resets the cookie jar,
// harvests the session cookies the server issues on first contact, submits
// the hashed credentials, and confirms the session. Only Login may create a
// session; every other call just rides the jar.
func (c *Client) Login(ctx context.Context, memberID, password string) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("session init: %w", err)
	}
	c.hc.Jar = jar
	c.memberID = ""

	hashed := hashSecret(password)

	// Cookie harvest: the server issues ASPSESSIONID cookies on first
	// contact with these pages. Failures here are not fatal, the login POST
	// can still mint a session.
	harvested := true
	for _, p := range []string{loginPagePath, indexPagePath} {
		if _, err := c.getPage(ctx, p); err != nil {
			c.log.Warnf("initial cookie harvest on %s failed, continuing: %v", p, err)
			harvested = false
		}
	}
	if harvested {
		c.log.Infof("initial cookie harvest complete")
	}

	form := url.Values{
		"method": {"doLogin"},
		"coDiv":  {coDiv},
		"id":     {memberID},
		"pw":     {hashed},
		"gubun":  {"1"},
		"check":  {"N"},
	}
	status, body, err := c.postForm(ctx, memberControlPath, loginPagePath, form)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("login request: %w", httpStatusErr(status))
	}
	if !strings.Contains(string(body), `"resultCode":"0000"`) {
		return fmt.Errorf("%w: %s", ErrRejected, strings.TrimSpace(string(body)))
	}
	c.memberID = memberID
	c.log.Infof("login accepted, session established")

	// Best-effort session confirm with the index page as referrer context.
	// The site does this after login; failure does not invalidate the
	// session so it is only logged.
	confirm := url.Values{
		"method": {"sessionConfirm"},
		"path":   {c.base + indexPagePath},
	}
	if _, _, err := c.postForm(ctx, sessionManagerPath, indexPagePath, confirm); err != nil {
		c.log.Warnf("session confirm failed, continuing: %v", err)
	} else {
		c.log.Infof("session confirmed")
	}
	return nil
}

// KeepAlive pings an authenticated page once a minute until deadline or
// cancellation so the server-side session survives the long wait. A failed
// ping never aborts the run; repeated failure surfaces later as auth errors
// if the session actually died.
func (c *Client) KeepAlive(ctx context.Context, deadline time.Time) {
	c.log.Infof("session keeper started")
	for {
		if ctx.Err() != nil {
			c.log.Infof("session keeper: stop signal received")
			return
		}
		if !c.now().Before(deadline) {
			c.log.Infof("session keeper: target instant reached")
			return
		}
		if _, err := c.getPage(ctx, keepAlivePath); err != nil {
			c.log.Warnf("keep-alive ping failed: %v", err)
		} else {
			c.log.Infof("keep-alive ping ok")
		}

		// sleep the interval in 1s steps so cancellation and the deadline
		// are observed promptly
		for waited := time.Duration(0); waited < c.keepAliveEvery; {
			if ctx.Err() != nil || !c.now().Before(deadline) {
				break
			}
			step := time.Second
			if remaining := c.keepAliveEvery - waited; remaining < step {
				step = remaining
			}
			c.pause(ctx, step)
			waited += step
		}
	}
}
