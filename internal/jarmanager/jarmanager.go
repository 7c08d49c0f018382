// Package jarmanager is the orchestrator: it drives the resolver, the
// on-disk LRU, and the in-memory LRU to answer a single request for one
// entry inside a javadoc JAR.
//
// All mutable state (both LRUs and the resolver's caches) is owned by one
// goroutine that drains a bounded mailbox channel strictly in arrival
// order. This gives "at most one concurrent download per JAR" and "at
// most one concurrent decompression per JAR" for free, without a lock,
// because only the worker goroutine ever touches the caches.
package jarmanager

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/EngineHub/remote-glovebox/internal/diskcache"
	"github.com/EngineHub/remote-glovebox/internal/logger"
	"github.com/EngineHub/remote-glovebox/internal/lrucache"
	"github.com/EngineHub/remote-glovebox/internal/resolver"
	"github.com/EngineHub/remote-glovebox/internal/rimfs"
)

// mailboxCapacity bounds the request queue. Once full, Handle returns
// ErrMailboxFull immediately rather than blocking the caller — the sole
// admission-control knob.
const mailboxCapacity = 10_000

// Outward error classifications. internal/httpapi maps ErrNotFound to 404,
// ErrMailboxFull to 503, and everything else to 500.
var (
	// ErrNotFound means the artifact could not be resolved, or the
	// requested path is absent from the resolved JAR.
	ErrNotFound = errors.New("jarmanager: not found")
	// ErrIO means an unrecovered lower-level I/O failure occurred.
	ErrIO = errors.New("jarmanager: I/O error")
	// ErrMailboxFull means the manager's request queue is saturated.
	ErrMailboxFull = errors.New("jarmanager: mailbox full")
)

// Request identifies a single javadoc entry to serve.
type Request struct {
	Group   string
	Name    string
	Version string
	Path    string
}

type job struct {
	ctx   context.Context
	req   Request
	reply chan result
}

type result struct {
	bytes []byte
	err   error
}

// Manager is the JAR resolution and caching orchestrator. Construct with
// New and call Handle from any number of goroutines; Handle is the only
// exported entry point and is safe for concurrent use by design — it only
// ever sends onto the mailbox channel.
type Manager struct {
	resolver *resolver.Resolver
	diskLRU  *diskcache.Cache
	memLRU   *lrucache.Cache[string, *rimfs.Fs]
	log      *logger.Logger

	mailbox chan job
	done    chan struct{}

	// closeMu guards against a send racing Stop's close of mailbox: Handle
	// holds it for read while enqueuing, Stop takes it exclusively before
	// closing, so no send can land on an already-closed channel.
	closeMu sync.RWMutex
	closed  bool
}

// New constructs a Manager and starts its single worker goroutine. Stop
// must be called to shut the worker down when the manager is no longer
// needed.
func New(r *resolver.Resolver, diskLRU *diskcache.Cache, memCacheSize int64, log *logger.Logger) *Manager {
	m := &Manager{
		resolver: r,
		diskLRU:  diskLRU,
		memLRU:   lrucache.New[string, *rimfs.Fs](memCacheSize),
		log:      log,
		mailbox:  make(chan job, mailboxCapacity),
		done:     make(chan struct{}),
	}
	go m.run()
	return m
}

// Stop closes the mailbox, causing the worker goroutine to exit once it
// has processed every job already queued. After Stop returns, Handle
// always fails with ErrMailboxFull rather than panicking on a send to a
// closed channel.
func (m *Manager) Stop() {
	m.closeMu.Lock()
	m.closed = true
	close(m.mailbox)
	m.closeMu.Unlock()
	<-m.done
}

func (m *Manager) run() {
	defer close(m.done)
	for j := range m.mailbox {
		b, err := m.handle(j.ctx, j.req)
		j.reply <- result{bytes: b, err: err}
	}
}

// Handle submits req to the mailbox and blocks until the single worker
// goroutine has processed it (or ctx is canceled first). Concurrent
// callers never observe partial state: the worker processes one request
// at a time, strictly in mailbox-arrival order. Canceling ctx does not
// cancel the queued work: the worker runs it to completion regardless.
func (m *Manager) Handle(ctx context.Context, req Request) ([]byte, error) {
	reply := make(chan result, 1)
	j := job{ctx: context.WithoutCancel(ctx), req: req, reply: reply}

	m.closeMu.RLock()
	if m.closed {
		m.closeMu.RUnlock()
		return nil, ErrMailboxFull
	}
	select {
	case m.mailbox <- j:
		m.closeMu.RUnlock()
	default:
		m.closeMu.RUnlock()
		return nil, ErrMailboxFull
	}

	select {
	case r := <-reply:
		return r.bytes, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handle runs entirely on the worker goroutine: it is the only place that
// touches diskLRU and memLRU, so no locking is needed around them.
func (m *Manager) handle(ctx context.Context, req Request) ([]byte, error) {
	coords, err := m.resolver.ResolveFullCoords(ctx, resolver.Coords{
		Group:   req.Group,
		Name:    req.Name,
		Version: req.Version,
	})
	if err != nil {
		if errors.Is(err, resolver.ErrMissingJavadoc) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "jarmanager: resolving coordinates")
	}

	jarPath := fmt.Sprintf("%s/%s/%s.jar", coords.Group, coords.Name, coords.FileVersion)

	diskPath, err := m.ensureOnDisk(ctx, jarPath, coords)
	if err != nil {
		return nil, err
	}

	fs, err := m.ensureInMemory(jarPath, diskPath)
	if err != nil {
		return nil, err
	}

	b, err := fs.Bytes(req.Path)
	if err != nil {
		if errors.Is(err, rimfs.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "jarmanager: reading jar entry")
	}
	return b, nil
}

// ensureOnDisk returns the filesystem path of jarPath in the on-disk LRU,
// downloading it from the resolver's transport on a cache miss. It never
// opens the file itself — rimfs.FromZip does that — so a request that
// only needs the path doesn't pay for an extra open/close and a held file
// descriptor.
func (m *Manager) ensureOnDisk(ctx context.Context, jarPath string, coords resolver.URLCoords) (string, error) {
	diskPath, err := m.diskLRU.Path(jarPath)
	switch {
	case err == nil:
		m.log.Debug("on-disk cache hit", "jar_path", jarPath)
		return diskPath, nil
	case errors.Is(err, diskcache.ErrFileNotInCache):
		m.log.Debug("on-disk cache miss, downloading", "jar_path", jarPath)
	default:
		return "", errors.Wrap(ErrIO, err.Error())
	}

	stream, err := m.resolver.ResolveJavadoc(ctx, coords)
	if err != nil {
		if errors.Is(err, resolver.ErrMissingJavadoc) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, "jarmanager: fetching javadoc jar")
	}
	defer stream.Close()

	if err := m.diskLRU.InsertWith(jarPath, func(w io.Writer) error {
		_, copyErr := io.Copy(w, stream)
		return copyErr
	}); err != nil {
		return "", errors.Wrap(ErrIO, err.Error())
	}

	diskPath, err = m.diskLRU.Path(jarPath)
	if err != nil {
		return "", errors.Wrap(ErrIO, err.Error())
	}
	return diskPath, nil
}

// ensureInMemory returns the decompressed in-memory filesystem for
// jarPath, decompressing diskPath on a cache miss.
func (m *Manager) ensureInMemory(jarPath, diskPath string) (*rimfs.Fs, error) {
	if fs, ok := m.memLRU.Get(jarPath); ok {
		return fs, nil
	}

	fs, err := rimfs.FromZip(diskPath)
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	m.memLRU.Add(jarPath, fs)

	fs, ok := m.memLRU.Get(jarPath)
	if !ok {
		// fs.Size() alone exceeded the in-memory LRU's capacity: lrucache.Add
		// panics in that case, so this branch is unreachable in practice; kept
		// defensive in case a future capacity policy changes that contract.
		return nil, errors.Wrap(ErrIO, "in-memory filesystem evicted before first read")
	}
	return fs, nil
}
