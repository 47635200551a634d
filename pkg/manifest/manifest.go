// Package manifest loads redirect manifests: declarative from/to rules kept
// outside the binary, typically maintained by content teams, and converted
// into redirect routes at startup. Manifests load from local files or S3.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/strada-dev/strada/pkg/router"
)

// Rule is one redirect: URLs matching From redirect to To. To supports
// ":param" template substitution from the matched params.
type Rule struct {
	From      string `json:"from"`
	To        string `json:"to"`
	PathMatch string `json:"pathMatch,omitempty"`
}

// Manifest is an ordered list of redirect rules. Order is priority, matching
// the route table's first-match-wins semantics.
type Manifest struct {
	Rules []Rule `json:"rules"`
}

// Parse decodes and validates a JSON manifest.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	for i, rule := range m.Rules {
		if rule.From == "" {
			return nil, fmt.Errorf("manifest: rule %d: missing from", i)
		}
		if rule.To == "" {
			return nil, fmt.Errorf("manifest: rule %d (%s): missing to", i, rule.From)
		}
		switch rule.PathMatch {
		case "", string(router.PathMatchPrefix), string(router.PathMatchFull):
		default:
			return nil, fmt.Errorf("manifest: rule %d (%s): pathMatch must be \"prefix\" or \"full\"", i, rule.From)
		}
	}
	return &m, nil
}

// LoadFile reads a manifest from a local JSON file.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// S3API is the slice of the S3 client the loader needs.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// LoadS3 fetches a manifest object from S3.
//
// Example:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	m, err := manifest.LoadS3(ctx, s3.NewFromConfig(cfg), "my-bucket", "redirects.json")
func LoadS3(ctx context.Context, client S3API, bucket, key string) (*Manifest, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("manifest: s3 get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return Parse(out.Body)
}

// Routes converts the manifest into redirect route definitions, in rule
// order, for registration ahead of the application routes.
func (m *Manifest) Routes() []*router.Route {
	routes := make([]*router.Route, 0, len(m.Rules))
	for _, rule := range m.Rules {
		routes = append(routes, &router.Route{
			Path:       strings.TrimPrefix(rule.From, "/"),
			RedirectTo: rule.To,
			PathMatch:  router.PathMatch(rule.PathMatch),
		})
	}
	return routes
}
