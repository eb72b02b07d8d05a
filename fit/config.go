// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fit

import (
	"bytes"
	"fmt"

	"github.com/platinasystems/log"
	"github.com/platinasystems/splfit/fdt"
)

const (
	configsPath = "/configurations"
	imagesPath  = "/images"

	// configuration image roles
	firmwareProp  = "firmware"
	fdtProp       = "fdt"
	loadablesProp = "loadables"
)

// findConfig walks the configuration variants in document order and returns
// the first whose description the board accepts. A configuration without a
// description is a container defect, not a skip.
func (l *Loader) findConfig(t *fdt.Tree) (int, error) {
	confs, err := t.PathOffset(configsPath)
	if err != nil {
		return -1, fmt.Errorf("%w: %s", ErrNodeNotFound, configsPath)
	}
	for node, ok := t.FirstSubnode(confs); ok; node, ok = t.NextSubnode(node) {
		desc, found := t.PropString(node, "description")
		if !found {
			return -1, fmt.Errorf("%w: configuration %s has no description",
				ErrBadContainer, t.NodeName(node))
		}
		if l.match(desc) {
			if l.Debug {
				log.Print("selecting config ", t.NodeName(node),
					": ", desc)
			}
			return node, nil
		}
	}
	log.Print("err", "no matching configuration out of:")
	for node, ok := t.FirstSubnode(confs); ok; node, ok = t.NextSubnode(node) {
		if desc, found := t.PropString(node, "description"); found {
			log.Print("err", "   ", desc)
		}
	}
	return -1, fmt.Errorf("%w: no matching configuration", ErrNodeNotFound)
}

// imageNode resolves the index'th name of the configuration's role property
// to the image subnode it names. The property holds one or more image names
// concatenated back to back, each NUL terminated.
func imageNode(t *fdt.Tree, images, conf int, role string, index int) (int, error) {
	name, ok := t.Prop(conf, role)
	if !ok {
		return -1, fmt.Errorf("%w: property %q", ErrNodeNotFound, role)
	}
	for i := 0; i < index; i++ {
		nul := bytes.IndexByte(name, 0)
		if nul < 0 || nul+1 >= len(name) || name[nul+1] == 0 {
			return -1, fmt.Errorf("%w: %s[%d]", ErrIndexRange, role, index)
		}
		name = name[nul+1:]
	}
	if nul := bytes.IndexByte(name, 0); nul >= 0 {
		name = name[:nul]
	}
	node, ok := t.Subnode(images, string(name))
	if !ok {
		return -1, fmt.Errorf("%w: image %q", ErrNodeNotFound, name)
	}
	return node, nil
}
