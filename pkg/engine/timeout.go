package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/kexbuild/pkg/catalog"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalResult passes evaluation output through channels.
type evalResult struct {
	catalog *catalog.Catalog
	errors  []EvalError
	err     error
}

// waitWithTimeout waits for a result from ch, but returns an error if the
// evaluation exceeds timeout or ctx is done first. It uses a generation
// counter to discard stale results from previous evaluations.
//
// On timeout the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ctx context.Context,
	ch <-chan evalResult,
	timeout time.Duration,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*catalog.Catalog, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, fmt.Errorf("engine: evaluation superseded by newer request")
		}
		return res.catalog, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("engine: evaluation timed out after %s", timeout)

	case <-ctx.Done():
		return nil, nil, fmt.Errorf("engine: evaluation cancelled: %w", ctx.Err())
	}
}
