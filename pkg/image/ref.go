package image

import (
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
)

const (
	// DefaultRegistry is assumed for image strings without a registry hostname.
	DefaultRegistry = "docker.io"
	// DefaultNamespace prefixes bare repository names, e.g. nginx -> library/nginx.
	DefaultNamespace = "library"
	// DefaultTag is assumed for image strings without a tag.
	DefaultTag = "latest"
)

// Reference identifies a container image. It is constructed by Parse for
// every scan request and is immutable afterwards.
type Reference struct {
	Registry   string `json:"registry"`
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
	Digest     string `json:"digest,omitempty"`
}

// Parse decomposes a free form image string into its components. It never
// fails; missing parts fall back to defaults instead.
//
// Examples:
//
//	nginx                               -> docker.io/library/nginx:latest
//	myacr.azurecr.io/app:v1             -> myacr.azurecr.io/app:v1
//	mcr.microsoft.com/dotnet/runtime:6.0 -> mcr.microsoft.com/dotnet/runtime:6.0
//	nginx@sha256:abc123                 -> docker.io/library/nginx@sha256:abc123
func Parse(imageString string) Reference {
	var dgst string
	if i := strings.LastIndex(imageString, "@"); i >= 0 {
		dgst = imageString[i+1:]
		imageString = imageString[:i]
		if d, err := digest.Parse(dgst); err == nil {
			dgst = d.String()
		}
	}

	tag := DefaultTag
	if i := strings.LastIndex(imageString, ":"); i >= 0 {
		tag = imageString[i+1:]
		imageString = imageString[:i]
	}

	var registry, repository string
	parts := strings.Split(imageString, "/")
	switch {
	case len(parts) == 1:
		// Simple name like "nginx".
		registry = DefaultRegistry
		repository = DefaultNamespace + "/" + parts[0]
	case len(parts) == 2:
		// Could be "user/repo" or "registry/repo". A registry hostname
		// contains a dot or a port.
		if strings.ContainsAny(parts[0], ".:") {
			registry = parts[0]
			repository = parts[1]
		} else {
			registry = DefaultRegistry
			repository = parts[0] + "/" + parts[1]
		}
	default:
		registry = parts[0]
		repository = strings.Join(parts[1:], "/")
	}

	return Reference{
		Registry:   registry,
		Repository: repository,
		Tag:        tag,
		Digest:     dgst,
	}
}

// Canonical returns the normalized image identity used as the cache and
// storage key. When a digest is present it pins the identity and the tag is
// dropped from the canonical form.
func (r Reference) Canonical() string {
	if r.Digest != "" {
		return fmt.Sprintf("%s/%s@%s", r.Registry, r.Repository, r.Digest)
	}
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

func (r Reference) String() string {
	return r.Canonical()
}

// PartitionKey returns the canonical name sanitized for use as a storage
// partition key or object path segment.
func (r Reference) PartitionKey() string {
	return Sanitize(r.Canonical())
}

// Sanitize replaces characters that are not safe in partition keys or
// object names with underscores.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '-' || c == '_' || c == '.':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
