// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fit

// Geom reconciles the two addressing models a storage source may have.
// Byte-addressed sources take arbitrary offsets but DMA wants them aligned
// down to Align; block-addressed sources take whole units of BlockLen.
// In both models a read lands Overhead(off) junk bytes ahead of the wanted
// payload, which the loader trims after the transfer.
type Geom struct {
	ByteAddressed bool
	BlockLen      uint32 // unit length of block-addressed reads
	Align         uint32 // DMA alignment of byte-addressed reads, power of two
}

// UnitLen is the byte length of one read unit.
func (g *Geom) UnitLen() uint32 {
	if g.ByteAddressed {
		return 1
	}
	return g.BlockLen
}

// AlignedOffset converts a byte offset to the unit a read may start at:
// the offset rounded down to Align, or the index of the containing block.
func (g *Geom) AlignedOffset(off uint32) uint32 {
	if g.ByteAddressed {
		return off &^ (g.Align - 1)
	}
	return off / g.BlockLen
}

// Overhead is how many bytes the aligned read start precedes off by.
func (g *Geom) Overhead(off uint32) uint32 {
	if g.ByteAddressed {
		return off & (g.Align - 1)
	}
	return off % g.BlockLen
}

// AlignedSize is the unit count that covers length payload bytes at off:
// reading AlignedSize(length, off) units from AlignedOffset(off) always
// yields Overhead(off) junk bytes followed by the length payload bytes.
func (g *Geom) AlignedSize(length, off uint32) uint32 {
	length += g.Overhead(off)
	if g.ByteAddressed {
		return length
	}
	return (length + g.BlockLen - 1) / g.BlockLen
}
