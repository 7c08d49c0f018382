// Package resolver turns possibly-symbolic Maven coordinates into the
// concrete URL coordinates needed to fetch a javadoc JAR, memoizing
// metadata lookups behind a fixed TTL.
package resolver

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/EngineHub/remote-glovebox/internal/logger"
	"github.com/EngineHub/remote-glovebox/internal/transport"
)

// ttl is how long a cached metadata lookup remains valid. There is no
// background sweeper; entries are simply re-fetched on demand once stale.
const ttl = 30 * time.Minute

// ErrMissingJavadoc means the requested artifact (or a javadoc classifier
// for it) could not be located, either because the underlying transport
// reported 404 or because the metadata it did return has no javadoc entry.
var ErrMissingJavadoc = errors.New("resolver: no javadoc artifact could be found")

// Coords are user-facing Maven coordinates: version may be a literal, the
// symbolic tokens LATEST/RELEASE/SNAPSHOT, or a literal ending in
// -SNAPSHOT.
type Coords struct {
	Group   string // dotted, e.g. "org.example"
	Name    string
	Version string
}

// URLCoords are resolved coordinates ready to build a request URL from.
type URLCoords struct {
	Group       string // slashed
	Name        string
	PathVersion string
	FileVersion string
}

type versionKind int

const (
	kindRelease versionKind = iota
	kindSnapshot
	kindLatest
)

// matches reports whether version is a candidate for kind. kindLatest
// matches any version regardless of snapshot-ness, mirroring Maven's own
// LATEST/RELEASE distinction: RELEASE skips snapshots, LATEST doesn't.
func (k versionKind) matches(version string) bool {
	switch k {
	case kindSnapshot:
		return strings.Contains(version, "-SNAPSHOT")
	case kindLatest:
		return true
	default:
		return !strings.Contains(version, "-SNAPSHOT")
	}
}

type versionCacheKey struct {
	group string
	name  string
	kind  versionKind
}

type snapshotCacheKey struct {
	group   string
	name    string
	version string
}

type cacheEntry struct {
	writeTime time.Time
	version   string
}

func (e cacheEntry) fresh(now time.Time) bool {
	return now.Sub(e.writeTime) < ttl
}

// Resolver resolves Maven coordinates against a Transport, memoizing
// symbolic-version and snapshot-timestamp lookups. Its cache maps are
// guarded by an internal mutex, so concurrent use is memory-safe, but two
// concurrent misses on the same key may both fetch metadata; glovebox
// relies on the jarmanager's single-writer mailbox to serialize lookups.
type Resolver struct {
	transport transport.Transport
	log       *logger.Logger

	mu          sync.Mutex
	versionMap  map[versionCacheKey]cacheEntry
	snapshotMap map[snapshotCacheKey]cacheEntry

	now func() time.Time // overridable for tests
}

// New returns a Resolver backed by the given Transport.
func New(t transport.Transport, log *logger.Logger) *Resolver {
	return &Resolver{
		transport:   t,
		log:         log,
		versionMap:  make(map[versionCacheKey]cacheEntry),
		snapshotMap: make(map[snapshotCacheKey]cacheEntry),
		now:         time.Now,
	}
}

// ResolveFullCoords turns possibly-symbolic coords into concrete URL
// coordinates, recursing at most once when a symbolic LATEST/RELEASE/
// SNAPSHOT token is substituted for a literal version.
func (r *Resolver) ResolveFullCoords(ctx context.Context, coords Coords) (URLCoords, error) {
	group := strings.ReplaceAll(coords.Group, ".", "/")

	switch {
	case strings.Contains(coords.Version, "-SNAPSHOT"):
		fileVersion, err := r.resolveSnapshot(ctx, coords)
		if err != nil {
			return URLCoords{}, err
		}
		return URLCoords{
			Group:       group,
			Name:        coords.Name,
			PathVersion: coords.Version,
			FileVersion: fileVersion,
		}, nil

	case isSymbolic(coords.Version, "RELEASE"), isSymbolic(coords.Version, "SNAPSHOT"), isSymbolic(coords.Version, "LATEST"):
		kind := kindRelease
		switch {
		case isSymbolic(coords.Version, "SNAPSHOT"):
			kind = kindSnapshot
		case isSymbolic(coords.Version, "LATEST"):
			kind = kindLatest
		}
		literal, err := r.findLatestVersion(ctx, group, coords, kind)
		if err != nil {
			return URLCoords{}, err
		}
		resolved := coords
		resolved.Version = literal
		return r.ResolveFullCoords(ctx, resolved)

	default:
		return URLCoords{
			Group:       group,
			Name:        coords.Name,
			PathVersion: coords.Version,
			FileVersion: coords.Version,
		}, nil
	}
}

func isSymbolic(version, token string) bool {
	return strings.EqualFold(version, token)
}

// resolveSnapshot finds the timestamped javadoc filename for a -SNAPSHOT
// version, via the version-scoped maven-metadata.xml.
func (r *Resolver) resolveSnapshot(ctx context.Context, coords Coords) (string, error) {
	key := snapshotCacheKey{group: coords.Group, name: coords.Name, version: coords.Version}

	r.mu.Lock()
	if entry, ok := r.snapshotMap[key]; ok && entry.fresh(r.now()) {
		r.mu.Unlock()
		return entry.version, nil
	}
	r.mu.Unlock()

	slashedGroup := strings.ReplaceAll(coords.Group, ".", "/")
	metadata, err := r.transport.GetMetadata(ctx, transport.MetadataRequest{
		Group:   slashedGroup,
		Name:    coords.Name,
		Version: coords.Version,
	})
	if err != nil {
		return "", classifyTransportErr(err)
	}

	if metadata.Versioning.SnapshotVersions == nil {
		return "", ErrMissingJavadoc
	}
	var fileVersion string
	found := false
	for _, sv := range metadata.Versioning.SnapshotVersions.SnapshotVersion {
		if sv.Classifier == "javadoc" {
			fileVersion = sv.Value
			found = true
			break
		}
	}
	if !found {
		return "", ErrMissingJavadoc
	}

	r.mu.Lock()
	r.snapshotMap[key] = cacheEntry{writeTime: r.now(), version: fileVersion}
	r.mu.Unlock()

	return fileVersion, nil
}

// findLatestVersion picks the newest version matching kind from the
// artifact-level maven-metadata.xml, via semantic-version ordering.
// Versions that fail to parse as semver are silently filtered out,
// tolerating polyglot repositories; if every candidate is unparsable this
// is indistinguishable from "no matching versions" and yields
// ErrMissingJavadoc.
func (r *Resolver) findLatestVersion(ctx context.Context, group string, coords Coords, kind versionKind) (string, error) {
	key := versionCacheKey{group: coords.Group, name: coords.Name, kind: kind}

	r.mu.Lock()
	if entry, ok := r.versionMap[key]; ok && entry.fresh(r.now()) {
		r.mu.Unlock()
		return entry.version, nil
	}
	r.mu.Unlock()

	metadata, err := r.transport.GetMetadata(ctx, transport.MetadataRequest{
		Group: group,
		Name:  coords.Name,
	})
	if err != nil {
		return "", classifyTransportErr(err)
	}
	if metadata.Versioning.Versions == nil {
		return "", ErrMissingJavadoc
	}

	type candidate struct {
		literal string
		parsed  *semver.Version
	}
	var candidates []candidate
	for _, v := range metadata.Versioning.Versions.Version {
		if !kind.matches(v) {
			continue
		}
		parsed, err := semver.NewVersion(v)
		if err != nil {
			continue // unparsable versions are tolerated and dropped
		}
		candidates = append(candidates, candidate{literal: v, parsed: parsed})
	}
	if len(candidates) == 0 {
		return "", ErrMissingJavadoc
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].parsed.GreaterThan(candidates[j].parsed)
	})
	version := candidates[0].literal

	r.mu.Lock()
	r.versionMap[key] = cacheEntry{writeTime: r.now(), version: version}
	r.mu.Unlock()

	return version, nil
}

// ResolveJavadoc fetches the javadoc JAR stream for already-resolved
// coordinates, normalizing a transport 404 to ErrMissingJavadoc.
func (r *Resolver) ResolveJavadoc(ctx context.Context, coords URLCoords) (io.ReadCloser, error) {
	stream, err := r.transport.GetArtifact(ctx, transport.ArtifactRequest{
		Group:       coords.Group,
		Name:        coords.Name,
		PathVersion: coords.PathVersion,
		FileVersion: coords.FileVersion,
		Classifier:  "javadoc",
		Extension:   "jar",
	})
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	return stream, nil
}

func classifyTransportErr(err error) error {
	if errors.Is(err, transport.ErrNotFound) {
		return ErrMissingJavadoc
	}
	return errors.Wrap(err, "resolver: transport error")
}
