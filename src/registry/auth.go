package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/context/ctxhttp"
)

// challenge is a parsed WWW-Authenticate header.
type challenge struct {
	Scheme string
	Params map[string]string
}

// parseChallenge parses `Bearer realm="...",service="...",scope="..."`.
func parseChallenge(header string) (challenge, error) {
	scheme, rest, _ := strings.Cut(strings.TrimSpace(header), " ")
	if scheme == "" {
		return challenge{}, fmt.Errorf("empty authentication challenge")
	}
	c := challenge{Scheme: strings.ToLower(scheme), Params: map[string]string{}}

	for rest = strings.TrimSpace(rest); rest != ""; {
		key, after, ok := strings.Cut(rest, "=")
		if !ok {
			return c, fmt.Errorf("malformed challenge %q", header)
		}
		key = strings.ToLower(strings.TrimSpace(key))

		var value string
		if strings.HasPrefix(after, `"`) {
			end := strings.Index(after[1:], `"`)
			if end < 0 {
				return c, fmt.Errorf("unterminated quote in challenge %q", header)
			}
			value = after[1 : end+1]
			after = after[end+2:]
		} else {
			value, after, _ = strings.Cut(after, ",")
			after = "," + after
		}
		c.Params[key] = value

		rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(after), ","))
	}
	return c, nil
}

// token fetches an anonymous pull token for a bearer challenge. Tokens are
// reused for later probes that receive the same challenge; cached reports
// such a reuse and key identifies the cache entry.
func (p *HTTPProber) token(ctx context.Context, header string) (token, key string, cached bool, err error) {
	c, err := parseChallenge(header)
	if err != nil {
		return "", "", false, err
	}
	if c.Scheme != "bearer" {
		return "", "", false, fmt.Errorf("unsupported authentication scheme %q", c.Scheme)
	}
	realm := c.Params["realm"]
	if realm == "" {
		return "", "", false, fmt.Errorf("bearer challenge without realm")
	}

	key = realm + "|" + c.Params["service"] + "|" + c.Params["scope"]
	if t, ok := p.tokens[key]; ok {
		return t, key, true, nil
	}

	u, err := url.Parse(realm)
	if err != nil {
		return "", "", false, fmt.Errorf("parsing token realm: %w", err)
	}
	q := u.Query()
	if s := c.Params["service"]; s != "" {
		q.Set("service", s)
	}
	if s := c.Params["scope"]; s != "" {
		q.Set("scope", s)
	}
	u.RawQuery = q.Encode()

	resp, err := ctxhttp.Get(ctx, p.Client, u.String())
	if err != nil {
		return "", "", false, fmt.Errorf("GET %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", "", false, fmt.Errorf("GET %s: %d %s", u.Redacted(), resp.StatusCode, truncateBody(body, 512))
	}

	var tr struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", "", false, fmt.Errorf("decoding token response: %w", err)
	}
	t := tr.Token
	if t == "" {
		t = tr.AccessToken
	}
	if t == "" {
		return "", "", false, fmt.Errorf("token response from %s has no token", u.Redacted())
	}

	if p.tokens == nil {
		p.tokens = map[string]string{}
	}
	p.tokens[key] = t
	return t, key, false, nil
}
