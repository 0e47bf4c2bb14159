//go:build unix

package resultset

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is an exclusive advisory lock held on the sentinel file.
type fileLock struct {
	file *os.File
}

// acquireLock blocks until an exclusive flock on path is granted.
func acquireLock(path string) (*fileLock, error) {
	// #nosec G304 -- Path is derived from trusted config
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX); err != nil {
		_ = file.Close()
		return nil, err
	}

	return &fileLock{file: file}, nil
}

// release unlocks and closes the sentinel. The file is always closed.
func (l *fileLock) release() error {
	if l.file == nil {
		return nil
	}
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
