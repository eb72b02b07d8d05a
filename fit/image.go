// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fit

import (
	"fmt"

	"github.com/platinasystems/log"
	"github.com/platinasystems/splfit/fdt"
)

// loadImage stages one image node: plan the aligned read, transfer it to
// the image's load address, trim the alignment overhead, run the
// post-process hook, and describe the outcome. def supplies the load
// address for images that carry none; a nil def makes that fatal.
func (l *Loader) loadImage(sector uint32, t *fdt.Tree, base uint32, node int, def *uint32) (Image, error) {
	var img Image
	name := t.NodeName(node)

	offset := t.PropUint32(node, "data-offset")
	length := t.PropUint32(node, "data-size")
	if offset == fdt.Sentinel || length == fdt.Sentinel {
		return img, fmt.Errorf("%w: image %s: bad data-offset/data-size",
			ErrBadContainer, name)
	}
	load := t.PropUint32(node, "load")
	if load == fdt.Sentinel {
		if def == nil {
			return img, fmt.Errorf("%w: image %s", ErrNoLoadAddress, name)
		}
		load = *def
	}
	entry := t.PropUint32(node, "entry")
	archStr, _ := t.PropString(node, "arch")

	g := l.Source.Geom()
	offset += base
	overhead := g.Overhead(offset)
	units := g.AlignedSize(length, offset)

	// the plan must cover the payload without the 32 bit unit math
	// having wrapped
	covered := uint64(units) * uint64(g.UnitLen())
	if covered > 0xffffffff || covered < uint64(overhead)+uint64(length) {
		return img, fmt.Errorf("%w: image %s: size %#x", ErrLayout,
			name, length)
	}
	dst, err := l.Mem.View(load, uint32(covered))
	if err != nil {
		return img, fmt.Errorf("%w: image %s at %#x+%#x", ErrLayout,
			name, load, covered)
	}
	n, err := l.Source.ReadUnits(sector+g.AlignedOffset(offset), units, dst)
	if err != nil {
		return img, fmt.Errorf("%w: image %s: %v", ErrIO, name, err)
	}
	if n != units {
		return img, fmt.Errorf("%w: image %s: %d of %d units", ErrIO,
			name, n, units)
	}
	if l.Debug {
		log.Printf("image %s: dst=%#x, offset=%#x, size=%#x", name,
			load, offset, length)
	}

	payload := dst[overhead : overhead+length]
	if l.PostProcess != nil {
		payload, err = l.PostProcess(payload)
		if err != nil {
			return img, fmt.Errorf("image %s: post-process: %w", name, err)
		}
	}
	// Move the payload to the buffer start. The source is never behind
	// the destination since overhead >= 0, so the overlapping ranges
	// copy forward safely.
	copy(dst, payload)

	img.Addr = load
	img.Size = uint32(len(payload))
	img.Entry = entry
	img.Arch = l.archID(archStr)
	return img, nil
}
