package registry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/petrows/github-linters/src/config"
)

// ProbeFailedError aborts a strict diff when a registry could not answer.
type ProbeFailedError struct {
	Ref    string
	Detail string
}

func (e *ProbeFailedError) Error() string {
	return fmt.Sprintf("probing %s: %s", e.Ref, e.Detail)
}

// Differ compares an image's declared tags with the registry.
//
// Tags are probed one by one in declaration order and results are never
// cached: every call asks the registry again.
type Differ struct {
	Prober Prober
	Strict bool // return *ProbeFailedError instead of treating probe errors as missing
	Log    zerolog.Logger
}

// NewDiffer creates a non-strict Differ.
func NewDiffer(prober Prober, log zerolog.Logger) *Differ {
	return &Differ{Prober: prober, Log: log}
}

// Check probes every tag of img and returns one result per tag, in order.
// The first hard probe error stops the check; no partial result is returned.
func (d *Differ) Check(ctx context.Context, img config.ImageSpec, reg config.RegistryConfig) ([]TagCheckResult, error) {
	results := make([]TagCheckResult, 0, len(img.Tags))

	for _, tag := range img.Tags {
		ref := reg.Reference(img.Name, tag)

		res, err := d.Prober.Probe(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", ref, err)
		}

		log := d.Log.Debug().Str("ref", ref).Stringer("state", res.State)
		if res.Detail != "" {
			log = log.Str("detail", res.Detail)
		}
		log.Msg("probed")

		if res.State == TagProbeError {
			if d.Strict {
				return nil, &ProbeFailedError{Ref: ref, Detail: res.Detail}
			}
			d.Log.Warn().Str("ref", ref).Str("detail", res.Detail).Msg("probe failed, treating tag as missing")
		}

		results = append(results, TagCheckResult{Tag: tag, Ref: ref, State: res.State, Detail: res.Detail})
	}

	return results, nil
}

// MissingTags returns the tags of img that are not present in the registry,
// keeping their declaration order.
func (d *Differ) MissingTags(ctx context.Context, img config.ImageSpec, reg config.RegistryConfig) ([]string, error) {
	results, err := d.Check(ctx, img, reg)
	if err != nil {
		return nil, err
	}
	return Missing(results), nil
}

// Missing filters results down to the tags that were not found present.
func Missing(results []TagCheckResult) []string {
	missing := []string{}
	for _, r := range results {
		if r.State != TagPresent {
			missing = append(missing, r.Tag)
		}
	}
	return missing
}
