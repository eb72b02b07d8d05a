// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fit

import (
	"fmt"

	"github.com/platinasystems/log"
	"github.com/platinasystems/splfit/fdt"
)

// Load stages every payload of the container found at the given storage
// unit. hdr must hold at least the container header, as already read by the
// caller while probing the boot source; the container itself is then read
// whole into a staging address just below TextBase.
//
// Order is fixed: firmware, then the device tree (placed after the firmware
// when it carries no load address), then loadables in ascending index
// order. The device tree placement depends on the firmware's final size and
// later loadables may assume memory populated by earlier ones.
func (l *Loader) Load(sector uint32, hdr []byte) (*Result, error) {
	if l.Align == 0 || l.Align&(l.Align-1) != 0 {
		return nil, fmt.Errorf("%w: alignment %#x not a power of two",
			ErrLayout, l.Align)
	}
	g := l.Source.Geom()
	alignLen := l.Align - 1

	size, err := fdt.BlobSize(hdr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
	}

	// The external payload region starts at the container size rounded
	// up to 4 bytes. The format reference rounds twice in a row; keep
	// both even though the second is a no-op after the first.
	size = (size + 3) &^ 3
	base := (size + 3) &^ 3

	// Stage the container immediately below TextBase, with slack for one
	// storage unit and the alignment, so an image whose first byte is
	// part-way through a unit still reads in below its load address.
	staging := (l.TextBase - size - g.UnitLen() - alignLen) &^ alignLen
	units := g.AlignedSize(size, 0)
	covered := uint64(units) * uint64(g.UnitLen())
	if covered > 0xffffffff || covered < uint64(size) {
		return nil, fmt.Errorf("%w: container size %#x", ErrLayout, size)
	}
	dst, err := l.Mem.View(staging, uint32(covered))
	if err != nil {
		return nil, fmt.Errorf("%w: container staging at %#x+%#x",
			ErrLayout, staging, covered)
	}
	n, err := l.Source.ReadUnits(sector, units, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: container: %v", ErrIO, err)
	}
	if n != units {
		return nil, fmt.Errorf("%w: container: %d of %d units", ErrIO,
			n, units)
	}
	if l.Debug {
		log.Printf("container read unit %#x, units=%d, dst=%#x", sector,
			units, staging)
	}

	t, err := fdt.Parse(dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
	}

	images, err := t.PathOffset(imagesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, imagesPath)
	}
	conf, err := l.findConfig(t)
	if err != nil {
		return nil, err
	}

	var res Result

	// The firmware image; older containers list it as the first loadable
	// instead of under its own role.
	node, err := imageNode(t, images, conf, firmwareProp, 0)
	if err != nil {
		node, err = imageNode(t, images, conf, loadablesProp, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: no firmware image", ErrNodeNotFound)
	}
	res.Firmware, err = l.loadImage(sector, t, base, node, nil)
	if err != nil {
		return nil, err
	}
	res.Firmware.OS = OSFirmware

	// The device tree goes right after the firmware unless it says
	// otherwise.
	node, err = imageNode(t, images, conf, fdtProp, 0)
	if err != nil {
		return nil, err
	}
	def := (res.Firmware.Addr + res.Firmware.Size + alignLen) &^ alignLen
	res.FDT, err = l.loadImage(sector, t, base, node, &def)
	if err != nil {
		return nil, err
	}

	// Remaining loadables. Running out of names ends the loop; a load
	// failure of a resolved image is still fatal.
	for i := 1; ; i++ {
		node, err = imageNode(t, images, conf, loadablesProp, i)
		if err != nil {
			break
		}
		img, err := l.loadImage(sector, t, base, node, nil)
		if err != nil {
			return nil, err
		}
		res.Loadables = append(res.Loadables, img)
	}

	return &res, nil
}
