package resultset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/felixgeelhaar/resultcov/internal/pathutil"
)

// minContentLength is the smallest cache worth parsing; anything shorter is
// a placeholder and treated as absent.
const minContentLength = 2

// Error classes for failures that abort loading.
var (
	ErrLock = errors.New("resultset lock")
	ErrRead = errors.New("resultset read")
)

// Reader reads the cache, taking the sentinel lock when the sentinel exists.
// A Reader is reentrant: Synchronize called from inside Synchronize does not
// try to take the lock again. It is not safe for concurrent use.
type Reader struct {
	Location Location

	// held counts active Synchronize frames that own the lock.
	held int
}

// NewReader creates a Reader for the given location.
func NewReader(loc Location) *Reader {
	return &Reader{Location: loc}
}

// Locked reports whether this Reader currently holds the sentinel lock.
func (r *Reader) Locked() bool {
	return r.held > 0
}

// Synchronize runs fn while holding the exclusive lock on the sentinel.
// Without a sentinel no writer can be contending and fn runs unlocked.
// The lock is released on every exit path, and a release failure is
// reported when fn itself succeeded.
func (r *Reader) Synchronize(fn func() error) (err error) {
	if r.held > 0 {
		return fn()
	}

	lockPath, err := pathutil.ValidatePath(r.Location.LockPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLock, err)
	}
	present, err := exists(lockPath)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrLock, lockPath, err)
	}
	if !present {
		return fn()
	}

	lock, err := acquireLock(lockPath)
	if err != nil {
		return fmt.Errorf("%w: acquire %s: %w", ErrLock, lockPath, err)
	}
	r.held++
	defer func() {
		r.held--
		if releaseErr := lock.release(); releaseErr != nil && err == nil {
			err = fmt.Errorf("%w: release %s: %w", ErrLock, lockPath, releaseErr)
		}
	}()

	return fn()
}

// Read returns the cache content, or nil when the cache is missing or
// shorter than two bytes.
func (r *Reader) Read() ([]byte, error) {
	var data []byte
	err := r.Synchronize(func() error {
		var readErr error
		data, readErr = r.readFile()
		return readErr
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *Reader) readFile() ([]byte, error) {
	path, err := pathutil.ValidatePath(r.Location.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is validated above
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
	}
	if len(data) < minContentLength {
		return nil, nil
	}
	return data, nil
}
