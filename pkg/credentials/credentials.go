// Package credentials loads upstream API credentials from the
// environment with a file-based fallback. The fallback file is a plain
// key-value list, one pair per line, delimited by a colon; the full-width
// colon variant is tolerated for files pasted from provider consoles.
package credentials

import (
	"fmt"
	"os"
	"strings"
)

// Well-known credential keys. The same names are used for environment
// variables and for keys in the fallback file.
const (
	KeyCDNEmail      = "CDN_API_EMAIL"
	KeyCDNKey        = "CDN_API_KEY"
	KeyEdgeAccessKey = "EDGE_ACCESS_KEY_ID"
	KeyEdgeSecretKey = "EDGE_ACCESS_KEY_SECRET"
)

// Credentials holds the static secrets for both upstream providers.
type Credentials struct {
	CDNEmail      string
	CDNKey        string
	EdgeAccessKey string
	EdgeSecretKey string
}

// CDNComplete reports whether the CDN analytics provider can authenticate.
func (c Credentials) CDNComplete() bool {
	return c.CDNEmail != "" && c.CDNKey != ""
}

// EdgeComplete reports whether the edge analytics provider can sign requests.
func (c Credentials) EdgeComplete() bool {
	return c.EdgeAccessKey != "" && c.EdgeSecretKey != ""
}

// Complete reports whether every field is populated.
func (c Credentials) Complete() bool {
	return c.CDNComplete() && c.EdgeComplete()
}

// merge fills any blank field of c from other.
func (c Credentials) merge(other Credentials) Credentials {
	if c.CDNEmail == "" {
		c.CDNEmail = other.CDNEmail
	}
	if c.CDNKey == "" {
		c.CDNKey = other.CDNKey
	}
	if c.EdgeAccessKey == "" {
		c.EdgeAccessKey = other.EdgeAccessKey
	}
	if c.EdgeSecretKey == "" {
		c.EdgeSecretKey = other.EdgeSecretKey
	}
	return c
}

// Source loads credentials from one location.
type Source interface {
	Load() (Credentials, error)
}

// EnvSource reads credentials from environment variables.
type EnvSource struct{}

// Load reads all known credential variables from the environment.
func (EnvSource) Load() (Credentials, error) {
	return Credentials{
		CDNEmail:      os.Getenv(KeyCDNEmail),
		CDNKey:        os.Getenv(KeyCDNKey),
		EdgeAccessKey: os.Getenv(KeyEdgeAccessKey),
		EdgeSecretKey: os.Getenv(KeyEdgeSecretKey),
	}, nil
}

// FileSource reads credentials from a colon-delimited key-value file.
type FileSource struct {
	Path string
}

// Load parses the credentials file. Lines starting with '#' and lines
// without a delimiter are ignored.
func (f FileSource) Load() (Credentials, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials file: %w", err)
	}

	values := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		values[key] = value
	}

	return Credentials{
		CDNEmail:      values[KeyCDNEmail],
		CDNKey:        values[KeyCDNKey],
		EdgeAccessKey: values[KeyEdgeAccessKey],
		EdgeSecretKey: values[KeyEdgeSecretKey],
	}, nil
}

// splitKeyValue splits a line on the first ASCII or full-width colon.
func splitKeyValue(line string) (string, string, bool) {
	idx := strings.IndexAny(line, ":：")
	if idx < 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	rest := line[idx:]
	// The full-width colon is a multi-byte rune.
	if strings.HasPrefix(rest, "：") {
		rest = strings.TrimPrefix(rest, "：")
	} else {
		rest = strings.TrimPrefix(rest, ":")
	}
	return key, strings.TrimSpace(rest), key != ""
}

// Chain tries each source in order, filling blanks from later sources.
// A failing source is skipped; loading stops early once every field is
// populated.
type Chain struct {
	sources []Source
}

// NewChain builds a chain over the given sources.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Load merges credentials across the chain's sources.
func (c *Chain) Load() (Credentials, error) {
	var merged Credentials
	var lastErr error
	for _, src := range c.sources {
		if merged.Complete() {
			break
		}
		creds, err := src.Load()
		if err != nil {
			lastErr = err
			continue
		}
		merged = merged.merge(creds)
	}
	if merged == (Credentials{}) && lastErr != nil {
		return merged, lastErr
	}
	return merged, nil
}
