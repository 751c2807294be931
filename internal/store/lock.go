package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// ErrLocked means another miner run holds the season's lock file.
var ErrLocked = errors.New("another run is already in progress")

// AcquireLock takes the advisory single-instance lock. Concurrent runs would
// interleave appends and break the raw store's dedup invariant, so the
// pipeline refuses to start while the lock exists.
func AcquireLock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: lock file %s exists", ErrLocked, path)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
	_ = f.Close()

	release := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove lock file")
		}
	}
	return release, nil
}
