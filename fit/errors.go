// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fit

import "errors"

// Every failure wraps one of these; match with errors.Is. Loading never
// retries: in the pre-OS environment nothing is transient, so the first
// fatal error aborts the remainder of the sequence.
var (
	ErrBadContainer  = errors.New("fit: malformed container")
	ErrNodeNotFound  = errors.New("fit: node not found")
	ErrIndexRange    = errors.New("fit: index out of range")
	ErrIO            = errors.New("fit: storage read failed")
	ErrNoLoadAddress = errors.New("fit: image has no load address")
	ErrLayout        = errors.New("fit: address outside memory window")
)
