package resolver

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/EngineHub/remote-glovebox/internal/logger"
	"github.com/EngineHub/remote-glovebox/internal/mavenxml"
	"github.com/EngineHub/remote-glovebox/internal/transport"
)

// fakeTransport is a hand-rolled transport.Transport double. It counts
// calls so tests can assert on TTL memoization and single-flight behavior.
type fakeTransport struct {
	mu sync.Mutex

	metadataCalls int
	artifactCalls int

	metadataByKey map[string]*mavenxml.Metadata
	notFoundKeys  map[string]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		metadataByKey: make(map[string]*mavenxml.Metadata),
		notFoundKeys:  make(map[string]bool),
	}
}

func metadataKey(req transport.MetadataRequest) string {
	return req.Group + "/" + req.Name + "/" + req.Version
}

func (f *fakeTransport) GetMetadata(ctx context.Context, req transport.MetadataRequest) (*mavenxml.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadataCalls++

	key := metadataKey(req)
	if f.notFoundKeys[key] {
		return nil, transport.ErrNotFound
	}
	md, ok := f.metadataByKey[key]
	if !ok {
		return nil, errors.Errorf("fakeTransport: no metadata registered for %s", key)
	}
	return md, nil
}

func (f *fakeTransport) GetArtifact(ctx context.Context, req transport.ArtifactRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artifactCalls++
	return io.NopCloser(strings.NewReader("jar-bytes")), nil
}

func testLogger() *logger.Logger {
	return logger.New()
}

func TestResolveFullCoordsLiteralVersion(t *testing.T) {
	r := New(newFakeTransport(), testLogger())

	got, err := r.ResolveFullCoords(context.Background(), Coords{
		Group: "org.example", Name: "lib", Version: "1.2.3",
	})
	if err != nil {
		t.Fatalf("ResolveFullCoords: %v", err)
	}
	want := URLCoords{Group: "org/example", Name: "lib", PathVersion: "1.2.3", FileVersion: "1.2.3"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestResolveFullCoordsSnapshotLiteral(t *testing.T) {
	ft := newFakeTransport()
	ft.metadataByKey["org/example/lib/1.2.3-SNAPSHOT"] = &mavenxml.Metadata{
		Versioning: mavenxml.Versioning{
			SnapshotVersions: &mavenxml.SnapshotVersions{
				SnapshotVersion: []mavenxml.SnapshotVersion{
					{Classifier: "sources", Value: "1.2.3-20240101.120000-8"},
					{Classifier: "javadoc", Value: "1.2.3-20240101.120000-7"},
				},
			},
		},
	}
	r := New(ft, testLogger())

	got, err := r.ResolveFullCoords(context.Background(), Coords{
		Group: "org.example", Name: "lib", Version: "1.2.3-SNAPSHOT",
	})
	if err != nil {
		t.Fatalf("ResolveFullCoords: %v", err)
	}
	want := URLCoords{
		Group: "org/example", Name: "lib",
		PathVersion: "1.2.3-SNAPSHOT", FileVersion: "1.2.3-20240101.120000-7",
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestResolveFullCoordsReleaseToken(t *testing.T) {
	ft := newFakeTransport()
	ft.metadataByKey["org/example/lib/"] = &mavenxml.Metadata{
		Versioning: mavenxml.Versioning{
			Versions: &mavenxml.Versions{
				Version: []string{"1.0.0", "2.0.0", "2.0.0-SNAPSHOT", "1.9.0"},
			},
		},
	}
	r := New(ft, testLogger())

	got, err := r.ResolveFullCoords(context.Background(), Coords{
		Group: "org.example", Name: "lib", Version: "RELEASE",
	})
	if err != nil {
		t.Fatalf("ResolveFullCoords: %v", err)
	}
	want := URLCoords{Group: "org/example", Name: "lib", PathVersion: "2.0.0", FileVersion: "2.0.0"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestResolveFullCoordsSnapshotToken(t *testing.T) {
	ft := newFakeTransport()
	ft.metadataByKey["org/example/lib/"] = &mavenxml.Metadata{
		Versioning: mavenxml.Versioning{
			Versions: &mavenxml.Versions{
				Version: []string{"1.0.0", "2.0.0", "2.0.0-SNAPSHOT", "1.9.0"},
			},
		},
	}
	ft.metadataByKey["org/example/lib/2.0.0-SNAPSHOT"] = &mavenxml.Metadata{
		Versioning: mavenxml.Versioning{
			SnapshotVersions: &mavenxml.SnapshotVersions{
				SnapshotVersion: []mavenxml.SnapshotVersion{
					{Classifier: "javadoc", Value: "2.0.0-20240102.000000-1"},
				},
			},
		},
	}
	r := New(ft, testLogger())

	got, err := r.ResolveFullCoords(context.Background(), Coords{
		Group: "org.example", Name: "lib", Version: "SNAPSHOT",
	})
	if err != nil {
		t.Fatalf("ResolveFullCoords: %v", err)
	}
	want := URLCoords{
		Group: "org/example", Name: "lib",
		PathVersion: "2.0.0-SNAPSHOT", FileVersion: "2.0.0-20240102.000000-1",
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestResolveFullCoordsLatestTokenPrefersSnapshotOverOlderRelease(t *testing.T) {
	ft := newFakeTransport()
	ft.metadataByKey["org/example/lib/"] = &mavenxml.Metadata{
		Versioning: mavenxml.Versioning{
			Versions: &mavenxml.Versions{
				Version: []string{"1.0.0", "2.0.0", "2.1.0-SNAPSHOT"},
			},
		},
	}
	ft.metadataByKey["org/example/lib/2.1.0-SNAPSHOT"] = &mavenxml.Metadata{
		Versioning: mavenxml.Versioning{
			SnapshotVersions: &mavenxml.SnapshotVersions{
				SnapshotVersion: []mavenxml.SnapshotVersion{
					{Classifier: "javadoc", Value: "2.1.0-20240103.000000-1"},
				},
			},
		},
	}
	r := New(ft, testLogger())

	got, err := r.ResolveFullCoords(context.Background(), Coords{
		Group: "org.example", Name: "lib", Version: "LATEST",
	})
	if err != nil {
		t.Fatalf("ResolveFullCoords: %v", err)
	}
	want := URLCoords{
		Group: "org/example", Name: "lib",
		PathVersion: "2.1.0-SNAPSHOT", FileVersion: "2.1.0-20240103.000000-1",
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestResolveFullCoordsAllUnparsableYieldsMissingJavadoc(t *testing.T) {
	ft := newFakeTransport()
	ft.metadataByKey["org/example/lib/"] = &mavenxml.Metadata{
		Versioning: mavenxml.Versioning{
			Versions: &mavenxml.Versions{
				Version: []string{"not-a-version", "also-not-one"},
			},
		},
	}
	r := New(ft, testLogger())

	_, err := r.ResolveFullCoords(context.Background(), Coords{
		Group: "org.example", Name: "lib", Version: "RELEASE",
	})
	if !errors.Is(err, ErrMissingJavadoc) {
		t.Fatalf("got %v, want ErrMissingJavadoc", err)
	}
}

func TestFindLatestVersionMemoizesWithinTTL(t *testing.T) {
	ft := newFakeTransport()
	ft.metadataByKey["org/example/lib/"] = &mavenxml.Metadata{
		Versioning: mavenxml.Versioning{
			Versions: &mavenxml.Versions{Version: []string{"1.0.0", "2.0.0"}},
		},
	}
	r := New(ft, testLogger())
	fixedNow := time.Now()
	r.now = func() time.Time { return fixedNow }

	coords := Coords{Group: "org.example", Name: "lib", Version: "RELEASE"}
	if _, err := r.ResolveFullCoords(context.Background(), coords); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := r.ResolveFullCoords(context.Background(), coords); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	ft.mu.Lock()
	calls := ft.metadataCalls
	ft.mu.Unlock()
	if calls != 1 {
		t.Errorf("metadata fetched %d times within TTL, want 1", calls)
	}
}

func TestFindLatestVersionRefetchesAfterTTL(t *testing.T) {
	ft := newFakeTransport()
	ft.metadataByKey["org/example/lib/"] = &mavenxml.Metadata{
		Versioning: mavenxml.Versioning{
			Versions: &mavenxml.Versions{Version: []string{"1.0.0", "2.0.0"}},
		},
	}
	r := New(ft, testLogger())
	t0 := time.Now()
	current := t0
	r.now = func() time.Time { return current }

	coords := Coords{Group: "org.example", Name: "lib", Version: "RELEASE"}
	if _, err := r.ResolveFullCoords(context.Background(), coords); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	current = t0.Add(ttl + time.Second)
	if _, err := r.ResolveFullCoords(context.Background(), coords); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	ft.mu.Lock()
	calls := ft.metadataCalls
	ft.mu.Unlock()
	if calls != 2 {
		t.Errorf("metadata fetched %d times across TTL boundary, want 2", calls)
	}
}

func TestResolveJavadocMapsNotFound(t *testing.T) {
	ft := newFakeTransport()
	r := New(ft, testLogger())
	r.transport = notFoundTransport{}

	_, err := r.ResolveJavadoc(context.Background(), URLCoords{
		Group: "org/example", Name: "lib", PathVersion: "1.2.3", FileVersion: "1.2.3",
	})
	if !errors.Is(err, ErrMissingJavadoc) {
		t.Fatalf("got %v, want ErrMissingJavadoc", err)
	}
}

type notFoundTransport struct{}

func (notFoundTransport) GetArtifact(ctx context.Context, req transport.ArtifactRequest) (io.ReadCloser, error) {
	return nil, transport.ErrNotFound
}

func (notFoundTransport) GetMetadata(ctx context.Context, req transport.MetadataRequest) (*mavenxml.Metadata, error) {
	return nil, transport.ErrNotFound
}
