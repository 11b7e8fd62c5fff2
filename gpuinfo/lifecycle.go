package gpuinfo

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
)

// Initialize binds the management library and starts a session with it. The
// session is reference counted: nested consumers call Initialize again and
// share the one underlying nvmlInit, and each call must be paired with a
// Shutdown. The first Initialize in the process also serializes nvml.Bind,
// satisfying its bind-once precondition.
func (c *Client) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refCount > 0 {
		c.refCount++
		return nil
	}
	if err := c.api.Bind(); err != nil {
		return fmt.Errorf("failed to bind the management library: %w", err)
	}
	if err := c.api.Init(); err != nil {
		return fmt.Errorf("failed to initialize the management library: %w", err)
	}
	c.refCount = 1
	return nil
}

// Shutdown releases one reference to the session. The last reference shuts
// the management library down; a Shutdown without a matching Initialize is a
// no-op.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refCount == 0 {
		return nil
	}
	c.refCount--
	if c.refCount > 0 {
		return nil
	}
	if err := c.api.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut the management library down: %w", err)
	}
	return nil
}

// IsInitialized reports whether the client holds a live session.
func (c *Client) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refCount > 0
}

// WaitUntilReady initializes the client, retrying with exponential backoff
// until the driver comes up or ctx is done. Useful at node start, where the
// driver may still be loading when the process launches. On success the
// client holds one reference, to be released with Shutdown.
func (c *Client) WaitUntilReady(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.readyInitialInterval
	b.MaxInterval = c.readyMaxInterval
	b.MaxElapsedTime = 0

	if err := backoff.Retry(c.Initialize, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("management library did not become ready: %w", err)
	}
	return nil
}
