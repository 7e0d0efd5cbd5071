package shm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/genrun/genrun/internal/admission"
)

const (
	slotWord    = 8 // one little-endian int64 per table word
	tableSuffix = ".slots"
	lockSuffix  = ".lock"

	// DefaultLockRetries is how many times a failed flock acquisition
	// is retried before surfacing an error.
	DefaultLockRetries = 5

	// DefaultLockDelay is the pause between lock acquisition retries.
	DefaultLockDelay = 100 * time.Millisecond
)

// Store maps coordination keys to file-backed slot table segments in a
// single directory. It implements admission.Store.
type Store struct {
	dir         string
	lockRetries int
	lockDelay   time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLockRetries sets how many times lock acquisition is retried.
func WithLockRetries(n int) StoreOption {
	return func(s *Store) {
		if n >= 0 {
			s.lockRetries = n
		}
	}
}

// WithLockDelay sets the pause between lock acquisition retries.
func WithLockDelay(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.lockDelay = d
		}
	}
}

// NewStore creates a Store rooted at dir. An empty dir selects
// DefaultDir.
func NewStore(dir string, opts ...StoreOption) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	s := &Store{
		dir:         dir,
		lockRetries: DefaultLockRetries,
		lockDelay:   DefaultLockDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultDir returns the directory segments live in: /dev/shm when the
// host provides it, the regular temp directory otherwise.
func DefaultDir() string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// AttachOrCreate opens the segment for key, creating and zero-filling
// it if no process has attached yet. Creation happens under the
// segment lock so a concurrent attacher can never observe a
// half-initialized table.
func (st *Store) AttachOrCreate(key string, capacity int) (admission.Table, bool, error) {
	if key == "" {
		return nil, false, errors.New("empty coordination key")
	}
	if capacity <= 0 {
		return nil, false, fmt.Errorf("invalid segment capacity %d", capacity)
	}

	base := filepath.Join(st.dir, segmentName(key))
	seg := &Segment{
		path:        base + tableSuffix,
		lockPath:    base + lockSuffix,
		capacity:    capacity,
		lockRetries: st.lockRetries,
		lockDelay:   st.lockDelay,
	}

	created, err := seg.ensure()
	if err != nil {
		return nil, false, err
	}
	return seg, created, nil
}

// segmentName maps a coordination key to a filesystem-safe segment
// name. The sanitized key keeps names recognizable; the appended hash
// of the raw key keeps distinct keys from colliding after
// sanitization.
func segmentName(key string) string {
	h := fnv.New32a()
	_, _ = io.WriteString(h, key)

	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	name := b.String()
	if len(name) > 40 {
		name = name[:40]
	}
	return fmt.Sprintf("genrun-%s-%08x", name, h.Sum32())
}

// Segment is one file-backed slot table. It implements admission.Table.
type Segment struct {
	path        string
	lockPath    string
	capacity    int
	lockRetries int
	lockDelay   time.Duration
}

// Path returns the segment's backing file path.
func (s *Segment) Path() string {
	return s.path
}

// ensure sizes the backing file for the table if this is the first
// attach. Returns true if this call created the table.
func (s *Segment) ensure() (bool, error) {
	lock, err := s.acquireLock()
	if err != nil {
		return false, err
	}
	defer s.releaseLock(lock)

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return false, fmt.Errorf("open segment %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat segment %s: %w", s.path, err)
	}

	want := int64(slotWord * (s.capacity + 1))
	if info.Size() >= want {
		return false, nil
	}
	if err := f.Truncate(want); err != nil {
		return false, fmt.Errorf("size segment %s: %w", s.path, err)
	}
	return true, nil
}

// WithLock runs fn with exclusive cross-process access to the table.
// The table is decoded before fn and written back only when fn returns
// nil, so a failed attempt leaves the segment untouched.
func (s *Segment) WithLock(fn func(*admission.Slots) error) error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	slots, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(slots); err != nil {
		return err
	}
	return s.write(slots)
}

func (s *Segment) read() (*admission.Slots, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open segment %s: %w", s.path, err)
	}
	defer f.Close()

	buf := make([]byte, slotWord*(s.capacity+1))
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("read segment %s: %w", s.path, err)
	}

	slots := &admission.Slots{
		Count: int(int64(binary.LittleEndian.Uint64(buf[:slotWord]))),
		PIDs:  make([]int, s.capacity),
	}
	for i := 0; i < s.capacity; i++ {
		slots.PIDs[i] = int(int64(binary.LittleEndian.Uint64(buf[slotWord*(i+1):])))
	}
	return slots, nil
}

func (s *Segment) write(slots *admission.Slots) error {
	buf := make([]byte, slotWord*(s.capacity+1))
	binary.LittleEndian.PutUint64(buf[:slotWord], uint64(int64(slots.Count)))
	for i := 0; i < s.capacity && i < len(slots.PIDs); i++ {
		binary.LittleEndian.PutUint64(buf[slotWord*(i+1):], uint64(int64(slots.PIDs[i])))
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open segment %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("write segment %s: %w", s.path, err)
	}
	return nil
}

// acquireLock takes the segment's flock, retrying a bounded number of
// times. A lock that cannot be acquired is an error, never a silent
// pass-through.
func (s *Segment) acquireLock() (*os.File, error) {
	var lastErr error
	for attempt := 0; attempt <= s.lockRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.lockDelay)
		}

		f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			lastErr = fmt.Errorf("open lock file: %w", err)
			continue
		}
		if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
			_ = f.Close()
			lastErr = fmt.Errorf("flock: %w", err)
			continue
		}
		return f, nil
	}
	return nil, fmt.Errorf("acquire segment lock %s: %w", s.lockPath, lastErr)
}

func (s *Segment) releaseLock(f *os.File) {
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	_ = f.Close()
}
