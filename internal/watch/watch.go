package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/aq/jobtree/pkg/jobtree"
)

// PollInterval is how often the store is re-read while waiting.
var PollInterval = 200 * time.Millisecond

// PollUntilReady blocks until the node has no active children left, which is
// when its own work may run. A leaf is ready at once.
func PollUntilReady(ctx context.Context, node *jobtree.Node, timeout time.Duration) error {
	return poll(ctx, timeout, func() (bool, error) {
		active, err := node.ActiveChildren(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to read children of %s: %w", node.Key(), err)
		}
		return len(active) == 0, nil
	})
}

// PollUntilReleased blocks until the tree is no longer registered as launched.
func PollUntilReleased(ctx context.Context, tree *jobtree.Tree, timeout time.Duration) error {
	return poll(ctx, timeout, func() (bool, error) {
		launched, err := tree.Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to query tree %s: %w", tree.Key(), err)
		}
		return !launched, nil
	})
}

func poll(ctx context.Context, timeout time.Duration, done func() (bool, error)) error {
	if ok, err := done(); err != nil || ok {
		return err
	}

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timeoutCh:
			return fmt.Errorf("timeout after %v", timeout)

		case <-ticker.C:
			ok, err := done()
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
	}
}
