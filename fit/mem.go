// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fit

// Mem is the physical memory window payloads are staged into: Buf[0] sits
// at physical address Base. Every computed address is checked against the
// window before anything is written, so a bad container cannot scribble
// outside it.
type Mem struct {
	Base uint32
	Buf  []byte
}

// View returns the n bytes at physical address addr, or ErrLayout when
// [addr, addr+n) is not fully inside the window.
func (m *Mem) View(addr, n uint32) ([]byte, error) {
	if addr < m.Base {
		return nil, ErrLayout
	}
	off := uint64(addr) - uint64(m.Base)
	if off+uint64(n) > uint64(len(m.Buf)) {
		return nil, ErrLayout
	}
	return m.Buf[off : off+uint64(n)], nil
}
