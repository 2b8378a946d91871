package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const testDigest = "sha256:2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae"

// newTestRegistry serves HEAD /v2/<name>/manifests/<tag> for the given
// references (path form "ci/a:1"). With auth set it demands a bearer token.
func newTestRegistry(t *testing.T, present map[string]bool, auth bool) (*httptest.Server, string) {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("service") != "test" {
			http.Error(w, "bad service", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"token":"s3cret"}`)
	})

	mux.HandleFunc("/v2/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if !strings.Contains(r.Header.Get("Accept"), "application/vnd.oci.image.index.v1+json") {
			http.Error(w, "accept", http.StatusNotFound)
			return
		}
		if auth && r.Header.Get("Authorization") != "Bearer s3cret" {
			w.Header().Set("WWW-Authenticate",
				fmt.Sprintf(`Bearer realm="%s/token",service="test",scope="repository:ci/a:pull"`, srv.URL))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, "/v2/")
		name, tag, ok := strings.Cut(path, "/manifests/")
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch {
		case name == "broken":
			w.WriteHeader(http.StatusInternalServerError)
		case present[name+":"+tag]:
			w.Header().Set("Docker-Content-Digest", testDigest)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, strings.TrimPrefix(srv.URL, "http://")
}

func TestHTTPProber(t *testing.T) {
	srv, host := newTestRegistry(t, map[string]bool{"ci/a:1": true}, false)
	p := NewHTTPProber(srv.Client(), true)

	tests := []struct {
		ref    string
		state  TagState
		detail string
	}{
		{host + "/ci/a:1", TagPresent, testDigest},
		{host + "/ci/a:2", TagAbsent, "manifest unknown"},
		{host + "/broken:1", TagProbeError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			res, err := p.Probe(context.Background(), tt.ref)
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if res.State != tt.state {
				t.Errorf("state = %v, want %v (%s)", res.State, tt.state, res.Detail)
			}
			if tt.detail != "" && res.Detail != tt.detail {
				t.Errorf("detail = %q, want %q", res.Detail, tt.detail)
			}
		})
	}
}

func TestHTTPProberBearerToken(t *testing.T) {
	srv, host := newTestRegistry(t, map[string]bool{"ci/a:1": true}, true)
	p := NewHTTPProber(srv.Client(), true)

	for _, tag := range []string{"1", "1"} {
		res, err := p.Probe(context.Background(), host+"/ci/a:"+tag)
		if err != nil {
			t.Fatalf("Probe: %v", err)
		}
		if res.State != TagPresent {
			t.Fatalf("state = %v (%s), want present", res.State, res.Detail)
		}
	}
	if len(p.tokens) != 1 {
		t.Errorf("cached %d tokens, want 1", len(p.tokens))
	}
}

// rotatingRegistry issues a new token per token request and only accepts the
// newest one; expire makes the current token invalid.
type rotatingRegistry struct {
	mu     sync.Mutex
	issued int
	valid  string
}

func (r *rotatingRegistry) expire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.valid = ""
}

func (r *rotatingRegistry) tokensIssued() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issued
}

func TestHTTPProberRefreshesExpiredToken(t *testing.T) {
	reg := &rotatingRegistry{}
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		reg.issued++
		reg.valid = fmt.Sprintf("t%d", reg.issued)
		fmt.Fprintf(w, `{"access_token":%q}`, reg.valid)
	})
	mux.HandleFunc("/v2/", func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		valid := reg.valid
		reg.mu.Unlock()
		if valid == "" || r.Header.Get("Authorization") != "Bearer "+valid {
			w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="%s/token",service="test"`, srv.URL))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	host := strings.TrimPrefix(srv.URL, "http://")

	p := NewHTTPProber(srv.Client(), true)

	res, err := p.Probe(context.Background(), host+"/ci/a:1")
	if err != nil || res.State != TagPresent {
		t.Fatalf("first probe = %v (%s), %v; want present", res.State, res.Detail, err)
	}

	reg.expire()

	res, err = p.Probe(context.Background(), host+"/ci/a:2")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.State != TagPresent {
		t.Errorf("after expiry state = %v (%s), want present", res.State, res.Detail)
	}
	if n := reg.tokensIssued(); n != 2 {
		t.Errorf("tokens issued = %d, want 2", n)
	}
}

func TestHTTPProberUnreachableIsProbeError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	p := NewHTTPProber(nil, true)
	res, err := p.Probe(context.Background(), host+"/ci/a:1")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.State != TagProbeError {
		t.Errorf("state = %v, want error", res.State)
	}
}

func TestHTTPProberRejectsBadReference(t *testing.T) {
	p := NewHTTPProber(nil, true)
	for _, ref := range []string{"ghcr.io/acme/UPPER:1", "ghcr.io/acme/a:bad tag", "ghcr.io/acme/ci/a"} {
		if _, err := p.Probe(context.Background(), ref); err == nil {
			t.Errorf("Probe(%q): expected error", ref)
		}
	}
}

func TestParseChallenge(t *testing.T) {
	c, err := parseChallenge(`Bearer realm="https://auth.example/token",service="registry.example",scope="repository:a/b:pull,push"`)
	if err != nil {
		t.Fatalf("parseChallenge: %v", err)
	}
	if c.Scheme != "bearer" {
		t.Errorf("scheme = %q", c.Scheme)
	}
	want := map[string]string{
		"realm":   "https://auth.example/token",
		"service": "registry.example",
		"scope":   "repository:a/b:pull,push",
	}
	for k, v := range want {
		if c.Params[k] != v {
			t.Errorf("%s = %q, want %q", k, c.Params[k], v)
		}
	}

	if _, err := parseChallenge(`Bearer realm="unterminated`); err == nil {
		t.Error("expected error for unterminated quote")
	}
}
