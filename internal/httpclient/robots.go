package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/temoto/robotstxt"
)

// ErrDisallowed is returned when robots.txt forbids a URL, or cannot be read
// for a host outside the allowlist.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// robotsRules is the cached outcome of one robots.txt fetch.
type robotsRules struct {
	group *robotstxt.Group
	err   error
}

// checkRobots returns nil when rawURL may be fetched.
func (c *Client) checkRobots(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}

	rules, err := c.robots(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return err
	}
	if rules.err != nil {
		if c.allowlisted(u.Hostname()) {
			c.log.Debug().Str("host", u.Host).Err(rules.err).Msg("robots.txt unavailable, host allowlisted")
			return nil
		}
		return fmt.Errorf("GET %s: %w: %v", rawURL, ErrDisallowed, rules.err)
	}
	if !rules.group.Test(u.RequestURI()) {
		return fmt.Errorf("GET %s: %w", rawURL, ErrDisallowed)
	}
	return nil
}

// robots returns the rules for origin, fetching robots.txt at most once per
// client. Only context and budget errors are returned directly; they are not
// cached.
func (c *Client) robots(ctx context.Context, origin string) (*robotsRules, error) {
	c.robotsMu.Lock()
	rules, ok := c.robotsCache[origin]
	c.robotsMu.Unlock()
	if ok {
		return rules, nil
	}

	v, err, _ := c.robotsFlight.Do(origin, func() (any, error) {
		rules, err := c.fetchRobots(ctx, origin)
		if err != nil {
			return nil, err
		}
		c.robotsMu.Lock()
		c.robotsCache[origin] = rules
		c.robotsMu.Unlock()
		return rules, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*robotsRules), nil
}

func (c *Client) fetchRobots(ctx context.Context, origin string) (*robotsRules, error) {
	target := origin + "/robots.txt"
	if !c.take() {
		return nil, fmt.Errorf("GET %s: %w", target, ErrBudgetExhausted)
	}

	resp, err := c.do(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &robotsRules{err: err}, nil
	}
	if resp.Status >= http.StatusInternalServerError {
		return &robotsRules{err: &StatusError{URL: target, Status: resp.Status}}, nil
	}

	// Missing or forbidden robots.txt allows everything.
	data, err := robotstxt.FromStatusAndBytes(resp.Status, resp.Body)
	if err != nil {
		return &robotsRules{err: fmt.Errorf("parse %s: %w", target, err)}, nil
	}
	c.log.Debug().Str("origin", origin).Int("status", resp.Status).Msg("robots.txt loaded")
	return &robotsRules{group: data.FindGroup(c.cfg.UserAgent)}, nil
}

// allowlisted reports whether host or one of its parent domains is listed.
func (c *Client) allowlisted(host string) bool {
	host = strings.ToLower(host)
	for _, h := range c.cfg.Allowlist {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && (host == h || strings.HasSuffix(host, "."+h)) {
			return true
		}
	}
	return false
}
