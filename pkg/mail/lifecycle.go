// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import "sync/atomic"

// Lifecycle tracks whether any mail channel has been started in this process.
type Lifecycle struct {
	initialized atomic.Bool
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// MarkInitialized records that a channel was built. It is never reverted.
func (l *Lifecycle) MarkInitialized() {
	l.initialized.Store(true)
}

func (l *Lifecycle) Initialized() bool {
	return l.initialized.Load()
}
