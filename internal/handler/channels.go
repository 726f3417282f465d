package handler

import "context"

// Source is one uncaught-failure channel of the host runtime. Hosts may
// expose zero, one, or several; each attaches independently and a missing
// channel is not an error.
type Source interface {
	Name() string

	// Capture drains the source until ctx is canceled or the source is
	// exhausted.
	Capture(ctx context.Context, h *Handler)
}

// ErrorChannel adapts a host error channel into a capture source.
type ErrorChannel struct {
	name string
	ch   <-chan error
}

func NewErrorChannel(name string, ch <-chan error) *ErrorChannel {
	return &ErrorChannel{name: name, ch: ch}
}

func (c *ErrorChannel) Name() string { return c.name }

func (c *ErrorChannel) Capture(ctx context.Context, h *Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-c.ch:
			if !ok {
				return
			}
			h.HandleUncaughtError(err, c.name)
		}
	}
}

// RejectionChannel adapts a channel of arbitrary failure values, the
// goroutine-side counterpart of ErrorChannel.
type RejectionChannel struct {
	name string
	ch   <-chan any
}

func NewRejectionChannel(name string, ch <-chan any) *RejectionChannel {
	return &RejectionChannel{name: name, ch: ch}
}

func (c *RejectionChannel) Name() string { return c.name }

func (c *RejectionChannel) Capture(ctx context.Context, h *Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case reason, ok := <-c.ch:
			if !ok {
				return
			}
			h.HandleUnhandledRejection(reason, c.name)
		}
	}
}
