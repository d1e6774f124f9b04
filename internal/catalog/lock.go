package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryWait = 200 * time.Millisecond

// AcquireLock takes the inter-process lock guarding catalog writes, waiting
// up to timeout for another holder to release it. The returned func releases
// the lock.
func AcquireLock(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create lock directory: %w", err)
	}

	l := flock.New(path)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	locked, err := l.TryLockContext(ctx, lockRetryWait)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout waiting for catalog lock %s after %v", path, time.Since(start).Round(100*time.Millisecond))
		}
		return nil, fmt.Errorf("cannot acquire catalog lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("catalog lock %s is held by another process", path)
	}

	log.Printf("✓ Catalog lock acquired in %v", time.Since(start).Round(time.Millisecond))
	return func() {
		if err := l.Unlock(); err != nil {
			log.Printf("Warning: failed to release catalog lock: %v", err)
		}
	}, nil
}
