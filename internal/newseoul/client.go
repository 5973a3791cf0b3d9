// Package newseoul is a client for the New Seoul CC mobile reservation
// controllers. The request flow, endpoints and form constants follow the
// site's mobile web app as captured from its network traffic.
package newseoul

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/bhc880510-bsk/newseoul-booking/internal/eventlog"
)

const (
	defaultBaseURL = "https://www.newseoulgolf.co.kr"

	// coDiv identifies the New Seoul facility in every controller call.
	coDiv = "204"

	// the mobile web app's verification token, constant across sessions.
	verifyEntityUnique = "MJUViUxhC3DR5ZmXcnTQ/HUNMAqMu6yyOFVH9nlp"

	userAgent = "Mozilla/5.0 (Linux; Android 10; Mobile AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.6533.100 Mobile Safari/537.36"

	loginPagePath      = "/mobile/join/login.asp"
	indexPagePath      = "/mobile/index.asp"
	memberControlPath  = "/controller/MemberController.asp"
	sessionManagerPath = "/controller/SessionManager.asp"
	reservationPath    = "/controller/ReservationController.asp"
	reserPagePath      = "/mobile/member/reser/reser.asp"
	keepAlivePath      = "/member/reser/reser.asp"
	reserveRefererPath = "/mobile/reservation/golf/reservation.asp"
)

var (
	// ErrRejected reports that the site refused the login; wrong credentials
	// and server-side refusal are not distinguishable from the response.
	ErrRejected = errors.New("login rejected")
)

// Seoul returns the KST location all wall-clock math runs in.
func Seoul() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// Options configures the transport toward the booking site.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// The site's TLS chain does not validate from every network; the
	// captured mobile app traffic also skips verification.
	InsecureTLS bool
}

// Client owns the authenticated session: cookie jar, default headers and the
// member id recorded on successful login. The jar is shared between the
// orchestrator and the session keeper; net/http's cookiejar is safe for that.
type Client struct {
	hc       *http.Client
	base     string
	loc      *time.Location
	log      *eventlog.Logger
	memberID string

	// request pacing, defaults match the observed site behavior
	clockProbes       int
	clockBackoff      time.Duration
	fetchAttempts     int
	fetchNetBackoff   time.Duration
	fetchParseBackoff time.Duration
	reserveAttempts   int
	timeoutBackoff    time.Duration
	networkBackoff    time.Duration
	settleDelay       time.Duration
	keepAliveEvery    time.Duration

	now func() time.Time
}

// New builds a client. The session itself is not live until Login.
func New(log *eventlog.Logger, opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		hc:   &http.Client{Timeout: timeout, Transport: transport, Jar: jar},
		base: base,
		loc:  Seoul(),
		log:  log,

		clockProbes:       5,
		clockBackoff:      500 * time.Millisecond,
		fetchAttempts:     2,
		fetchNetBackoff:   300 * time.Millisecond,
		fetchParseBackoff: 500 * time.Millisecond,
		reserveAttempts:   2,
		timeoutBackoff:    500 * time.Millisecond,
		networkBackoff:    time.Second,
		settleDelay:       5 * time.Second,
		keepAliveEvery:    time.Minute,

		now: time.Now,
	}
}

// MemberID returns the authenticated subject id, empty before login.
func (c *Client) MemberID() string { return c.memberID }

func (c *Client) setHeaders(req *http.Request, refererPath string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.base+refererPath)
	req.Header.Set("Origin", c.base)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
}

// postForm issues a form-encoded POST with the mobile app's headers and the
// given per-step referer.
func (c *Client) postForm(ctx context.Context, path, refererPath string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	c.setHeaders(req, refererPath)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, body, nil
}

// getPage issues a plain authenticated GET, used for cookie harvesting,
// keep-alive pings and the server clock probe.
func (c *Client) getPage(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, loginPagePath)
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
	return res, nil
}

// pause sleeps for d or until ctx is cancelled, whichever comes first.
func (c *Client) pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func httpStatusErr(status int) error {
	return fmt.Errorf("http status %d", status)
}
