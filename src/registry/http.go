package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/distribution/reference"
	"github.com/docker/distribution/manifest/manifestlist"
	"github.com/docker/distribution/manifest/schema2"
	"github.com/opencontainers/go-digest"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/net/context/ctxhttp"
)

// manifestAccept lists every manifest flavor a tag may point at. Registries
// answer 404 for a tag whose manifest type is not accepted.
var manifestAccept = strings.Join([]string{
	v1.MediaTypeImageIndex,
	v1.MediaTypeImageManifest,
	manifestlist.MediaTypeManifestList,
	schema2.MediaTypeManifest,
}, ", ")

// HTTPProber checks references with a HEAD request against the OCI
// distribution API: HEAD /v2/<name>/manifests/<tag>.
//
// Unlike CLIProber it can tell a missing tag (404) from a registry that
// could not be asked (transport errors, 5xx), which it reports as
// TagProbeError. Anonymous bearer tokens are requested when the registry
// challenges, which is enough for public repositories.
type HTTPProber struct {
	Client    *http.Client
	PlainHTTP bool // talk http:// instead of https://, for local registries
	UserAgent string

	tokens map[string]string // challenge scope → token
}

// NewHTTPProber creates an HTTPProber using client (nil = http.DefaultClient).
func NewHTTPProber(client *http.Client, plainHTTP bool) *HTTPProber {
	return &HTTPProber{Client: client, PlainHTTP: plainHTTP, UserAgent: "build-docker"}
}

func (p *HTTPProber) Probe(ctx context.Context, ref string) (ProbeResult, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("parsing reference %q: %w", ref, err)
	}
	tagged, ok := named.(reference.Tagged)
	if !ok {
		return ProbeResult{}, fmt.Errorf("reference %q has no tag", ref)
	}

	url := fmt.Sprintf("%s/v2/%s/manifests/%s", p.endpoint(reference.Domain(named)), reference.Path(named), tagged.Tag())

	resp, err := p.head(ctx, url, "")
	if err != nil {
		if ctx.Err() != nil {
			return ProbeResult{}, ctx.Err()
		}
		return ProbeResult{State: TagProbeError, Detail: err.Error()}, nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp, err = p.authorizedHead(ctx, url, resp.Header.Get("WWW-Authenticate"))
		if err != nil {
			if ctx.Err() != nil {
				return ProbeResult{}, ctx.Err()
			}
			return ProbeResult{State: TagProbeError, Detail: err.Error()}, nil
		}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return ProbeResult{State: TagPresent, Detail: contentDigest(resp)}, nil
	case http.StatusNotFound:
		return ProbeResult{State: TagAbsent, Detail: "manifest unknown"}, nil
	default:
		return ProbeResult{State: TagProbeError, Detail: fmt.Sprintf("HEAD %s: %s", url, resp.Status)}, nil
	}
}

// authorizedHead answers a bearer challenge and repeats the request. A cached
// token the registry no longer accepts is dropped and fetched again, once.
func (p *HTTPProber) authorizedHead(ctx context.Context, url, challenge string) (*http.Response, error) {
	token, key, cached, err := p.token(ctx, challenge)
	if err != nil {
		return nil, err
	}
	resp, err := p.head(ctx, url, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || !cached {
		return resp, err
	}

	delete(p.tokens, key)
	if token, _, _, err = p.token(ctx, challenge); err != nil {
		return nil, err
	}
	return p.head(ctx, url, token)
}

// endpoint returns the API base URL for a registry domain.
func (p *HTTPProber) endpoint(domain string) string {
	if domain == "docker.io" {
		domain = "registry-1.docker.io"
	}
	if p.PlainHTTP {
		return "http://" + domain
	}
	return "https://" + domain
}

// head issues a HEAD request. The body is closed before returning.
func (p *HTTPProber) head(ctx context.Context, url, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", manifestAccept)
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ctxhttp.Do(ctx, p.Client, req)
	if err != nil {
		return nil, fmt.Errorf("HEAD %s: %w", url, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp, nil
}

// contentDigest returns the validated Docker-Content-Digest header, or "".
func contentDigest(resp *http.Response) string {
	d, err := digest.Parse(resp.Header.Get("Docker-Content-Digest"))
	if err != nil {
		return ""
	}
	return d.String()
}

func truncateBody(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
