/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package flush holds callbacks that must run only once a test has flushed
// its virtual time.
package flush

// Registry is a FIFO of deferred callbacks. It is not safe for concurrent
// use; each test owns its own.
type Registry struct {
	callbacks []func()
}

// Register queues callback behind every callback already registered.
func (r *Registry) Register(callback func()) {
	r.callbacks = append(r.callbacks, callback)
}

// Drain invokes the callbacks in registration order until none remain,
// including callbacks registered while draining. If a callback panics, the
// panic propagates and the callbacks behind it are discarded. The registry is
// empty when Drain returns either way.
func (r *Registry) Drain() {
	defer r.Reset()

	for len(r.callbacks) > 0 {
		callback := r.callbacks[0]
		r.callbacks[0] = nil
		r.callbacks = r.callbacks[1:]
		callback()
	}
}

// Reset discards every pending callback.
func (r *Registry) Reset() {
	r.callbacks = nil
}

// Len returns the number of pending callbacks.
func (r *Registry) Len() int {
	return len(r.callbacks)
}
