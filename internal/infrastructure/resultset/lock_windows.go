//go:build windows

package resultset

import (
	"os"

	"golang.org/x/sys/windows"
)

// fileLock is an exclusive lock held on the sentinel file.
type fileLock struct {
	file *os.File
}

// acquireLock blocks until LockFileEx grants an exclusive lock on path.
func acquireLock(path string) (*fileLock, error) {
	// #nosec G304 -- Path is derived from trusted config
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	handle := windows.Handle(file.Fd())
	overlapped := &windows.Overlapped{}
	if err := windows.LockFileEx(handle, windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, overlapped); err != nil {
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
	handle := windows.Handle(l.file.Fd())
	overlapped := &windows.Overlapped{}
	unlockErr := windows.UnlockFileEx(handle, 0, 1, 0, overlapped)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
