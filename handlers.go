package g15desktop

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

var errMalformedSignal = errors.New("malformed signal")

// dispatch handles signals until the signal channel is closed. A failed
// handler leaves the cache in an unknown state, so everything is loaded
// again from the service.
func (c *Component) dispatch() {
	defer c.wg.Done()

	for signal := range c.signals {
		err := c.handleSignal(c.ctx, signal)
		if err == nil {
			continue
		}

		if errors.Is(err, errMalformedSignal) {
			c.logger.Warn("ignoring signal", "signal", signal.Name, "err", err)
			continue
		}

		if c.ctx.Err() != nil {
			return
		}

		c.logger.Warn("signal handler failed, resynchronizing", "signal", signal.Name, "err", err)
		c.resync()
	}
}

func (c *Component) handleSignal(ctx context.Context, signal *dbus.Signal) error {
	switch signal.Name {
	case "org.freedesktop.DBus.NameOwnerChanged":
		name, oldOwner, newOwner, err := nameOwnerChangedArgs(signal)
		if err != nil {
			return err
		}
		if name == BusName {
			c.nameOwnerChanged(ctx, oldOwner, newOwner)
		}
		return nil

	case ServiceInterface + ".ScreenAdded":
		path, err := signalString(signal, 0)
		if err != nil {
			return err
		}
		return c.onScreenAdded(ctx, path)

	case ServiceInterface + ".ScreenRemoved":
		path, err := signalString(signal, 0)
		if err != nil {
			return err
		}
		c.onScreenRemoved(path)
		return nil

	case ScreenInterface + ".PageCreated":
		path, seq, title, err := pageSignalArgs(signal, true)
		if err != nil {
			return err
		}
		return c.onPageCreated(ctx, path, seq, title)

	case ScreenInterface + ".PageTitleChanged":
		path, seq, title, err := pageSignalArgs(signal, true)
		if err != nil {
			return err
		}
		return c.onPageTitleChanged(path, seq, title)

	case ScreenInterface + ".PageDeleting":
		path, seq, _, err := pageSignalArgs(signal, false)
		if err != nil {
			return err
		}
		return c.onPageDeleting(path, seq)

	case ScreenInterface + ".AttentionRequested":
		path, err := signalString(signal, 0)
		if err != nil {
			return err
		}

		// The message argument is optional.
		var message string
		if len(signal.Body) > 1 {
			message, _ = toString(signal.Body[1])
		}

		c.onAttentionRequested(path, message)
		return nil

	case ScreenInterface + ".AttentionCleared":
		path, err := signalString(signal, 0)
		if err != nil {
			return err
		}
		c.onAttentionCleared(path)
		return nil
	}

	return nil
}

// nameOwnerChanged handles ownership changes of the service name. The
// service appearing on the bus triggers a connect, and disappearing triggers
// a disconnect.
func (c *Component) nameOwnerChanged(ctx context.Context, oldOwner, newOwner string) {
	connected := c.Connected()

	switch {
	case oldOwner == "" && newOwner != "":
		if !connected {
			c.logger.Info("service appeared on the bus", "owner", newOwner)
			c.connectOrDisconnect(ctx)
		}

	case oldOwner != "" && newOwner == "":
		if connected {
			c.logger.Info("service disappeared from the bus", "owner", oldOwner)
			c.disconnect()
		}

	case oldOwner != "" && newOwner != "":
		c.logger.Info("service changed owner", "old_owner", oldOwner, "new_owner", newOwner)
		if connected {
			c.disconnect()
		}
		c.connectOrDisconnect(ctx)
	}
}

// onScreenAdded adds a newly created remote screen. Pages of the screen are
// added by subsequent PageCreated signals.
func (c *Component) onScreenAdded(ctx context.Context, path string) error {
	c.logger.Debug("screen added", "screen", path)

	screen, requested, err := c.loadScreen(ctx, path)
	if err != nil {
		return fmt.Errorf("screen added: %w", err)
	}

	c.mu.Lock()
	if c.state != Connected {
		c.mu.Unlock()
		return nil
	}

	if _, exists := c.screens[path]; exists {
		c.mu.Unlock()
		return nil
	}

	c.screens[path] = screen
	// A screen that already requests attention when it appears is surfaced
	// right away, just like screens found while connecting.
	if requested {
		c.attention.add(path, screen.Message)
	}
	c.mu.Unlock()

	c.adapter.Rebuild()

	return nil
}

// onScreenRemoved removes a remote screen. It always rebuilds.
func (c *Component) onScreenRemoved(path string) {
	c.logger.Debug("screen removed", "screen", path)

	if !c.Connected() {
		return
	}

	c.removeScreen(path)
}

// onPageCreated adds a page when its priority makes it visible.
func (c *Component) onPageCreated(ctx context.Context, path string, seq int, title string) error {
	c.logger.Debug("page created", "screen", path, "page", seq, "title", title)

	priority, err := newPageObject(c.bus, seq, c.callTimeout).Priority(ctx)
	if err != nil {
		return fmt.Errorf("page created: %w", err)
	}

	c.mu.Lock()
	if c.state != Connected || priority < PriorityLow {
		c.mu.Unlock()
		return nil
	}

	screen, ok := c.screens[path]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("page %d created: %w %s", seq, ErrUnknownScreen, path)
	}

	key := pageKey(seq)
	if _, exists := screen.Items[key]; exists {
		c.mu.Unlock()
		return nil
	}

	screen.Items[key] = title
	c.mu.Unlock()

	c.adapter.Rebuild()

	return nil
}

// onPageTitleChanged updates the title of a visible page. It always
// rebuilds.
//
// An unknown sequence number is not inserted: the page is either hidden by
// its priority or not created yet, and PageCreated checks the priority.
func (c *Component) onPageTitleChanged(path string, seq int, title string) error {
	c.logger.Debug("page title changed", "screen", path, "page", seq, "title", title)

	c.mu.Lock()
	if c.state != Connected {
		c.mu.Unlock()
		return nil
	}

	screen, ok := c.screens[path]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("page %d title changed: %w %s", seq, ErrUnknownScreen, path)
	}

	key := pageKey(seq)
	if _, exists := screen.Items[key]; exists {
		screen.Items[key] = title
	}
	c.mu.Unlock()

	c.adapter.Rebuild()

	return nil
}

// onPageDeleting removes a page.
func (c *Component) onPageDeleting(path string, seq int) error {
	c.logger.Debug("page deleting", "screen", path, "page", seq)

	c.mu.Lock()
	if c.state != Connected {
		c.mu.Unlock()
		return nil
	}

	screen, ok := c.screens[path]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("page %d deleting: %w %s", seq, ErrUnknownScreen, path)
	}

	key := pageKey(seq)
	if _, exists := screen.Items[key]; !exists {
		c.mu.Unlock()
		return nil
	}

	delete(screen.Items, key)
	c.mu.Unlock()

	c.adapter.Rebuild()

	return nil
}

// onAttentionRequested records an attention request of a screen. A repeated
// request from the same screen keeps the first message.
func (c *Component) onAttentionRequested(path, message string) {
	c.logger.Debug("attention requested", "screen", path, "message", message)

	c.mu.Lock()
	added := c.state == Connected && c.attention.add(path, message)
	c.mu.Unlock()

	if added {
		c.adapter.Rebuild()
	}
}

// onAttentionCleared drops the attention request of a screen.
func (c *Component) onAttentionCleared(path string) {
	c.logger.Debug("attention cleared", "screen", path)

	c.mu.Lock()
	removed := c.state == Connected && c.attention.remove(path)
	c.mu.Unlock()

	if removed {
		c.adapter.Rebuild()
	}
}

func nameOwnerChangedArgs(signal *dbus.Signal) (name, oldOwner, newOwner string, err error) {
	if len(signal.Body) < 3 {
		return "", "", "", fmt.Errorf("%w: %s: expected 3 arguments", errMalformedSignal, signal.Name)
	}

	args := make([]string, 3)
	for idx := range args {
		if args[idx], err = signalString(signal, idx); err != nil {
			return "", "", "", err
		}
	}

	return args[0], args[1], args[2], nil
}

// pageSignalArgs parses (screen path, sequence number[, title]) arguments.
func pageSignalArgs(signal *dbus.Signal, withTitle bool) (path string, seq int, title string, err error) {
	path, err = signalString(signal, 0)
	if err != nil {
		return "", 0, "", err
	}

	if len(signal.Body) < 2 {
		return "", 0, "", fmt.Errorf("%w: %s: missing page sequence number", errMalformedSignal, signal.Name)
	}

	seq, ok := toInt(signal.Body[1])
	if !ok {
		return "", 0, "", fmt.Errorf("%w: %s: invalid page sequence number type %T", errMalformedSignal, signal.Name, signal.Body[1])
	}

	if withTitle {
		title, err = signalString(signal, 2)
		if err != nil {
			return "", 0, "", err
		}
	}

	return path, seq, title, nil
}

// signalString returns the idx-th argument of signal as string. Object paths
// are accepted as well.
func signalString(signal *dbus.Signal, idx int) (string, error) {
	if len(signal.Body) <= idx {
		return "", fmt.Errorf("%w: %s: missing argument %d", errMalformedSignal, signal.Name, idx)
	}

	s, ok := toString(signal.Body[idx])
	if !ok {
		return "", fmt.Errorf("%w: %s: invalid type %T of argument %d", errMalformedSignal, signal.Name, signal.Body[idx], idx)
	}

	return s, nil
}
