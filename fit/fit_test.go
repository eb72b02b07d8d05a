// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fit

import (
	"bytes"
	"encoding/binary"
)

// Test containers are assembled from scratch so every offset and property
// is under the test's control.

type tprop struct {
	name  string
	value []byte
}

type tnode struct {
	name     string
	props    []tprop
	children []tnode
}

func u32prop(name string, v uint32) tprop {
	var cell [4]byte
	binary.BigEndian.PutUint32(cell[:], v)
	return tprop{name, cell[:]}
}

// strprop joins the values NUL terminated, back to back, the way image
// roles reference image names.
func strprop(name string, values ...string) tprop {
	var b bytes.Buffer
	for _, v := range values {
		b.WriteString(v)
		b.WriteByte(0)
	}
	return tprop{name, b.Bytes()}
}

type treeWriter struct {
	strct   bytes.Buffer
	strs    bytes.Buffer
	strOffs map[string]uint32
}

func (w *treeWriter) u32(v uint32) {
	binary.Write(&w.strct, binary.BigEndian, v)
}

func (w *treeWriter) pad() {
	for w.strct.Len()%4 != 0 {
		w.strct.WriteByte(0)
	}
}

func (w *treeWriter) stroff(name string) uint32 {
	if w.strOffs == nil {
		w.strOffs = make(map[string]uint32)
	}
	off, ok := w.strOffs[name]
	if !ok {
		off = uint32(w.strs.Len())
		w.strOffs[name] = off
		w.strs.WriteString(name)
		w.strs.WriteByte(0)
	}
	return off
}

func (w *treeWriter) node(n tnode) {
	w.u32(0x1) // begin node
	w.strct.WriteString(n.name)
	w.strct.WriteByte(0)
	w.pad()
	for _, p := range n.props {
		w.u32(0x3) // prop
		w.u32(uint32(len(p.value)))
		w.u32(w.stroff(p.name))
		w.strct.Write(p.value)
		w.pad()
	}
	for _, c := range n.children {
		w.node(c)
	}
	w.u32(0x2) // end node
}

func buildTree(root tnode) []byte {
	w := new(treeWriter)
	w.node(root)
	w.u32(0x9) // end

	const hdrLen, rsvLen = 40, 16
	offStruct := uint32(hdrLen + rsvLen)
	offStrings := offStruct + uint32(w.strct.Len())
	total := offStrings + uint32(w.strs.Len())

	var out bytes.Buffer
	for _, v := range []uint32{
		0xd00dfeed, total, offStruct, offStrings, hdrLen,
		17, 16, 0,
		uint32(w.strs.Len()), uint32(w.strct.Len()),
	} {
		binary.Write(&out, binary.BigEndian, v)
	}
	out.Write(make([]byte, rsvLen))
	out.Write(w.strct.Bytes())
	out.Write(w.strs.Bytes())
	return out.Bytes()
}

// payloadBase mirrors the loader's layout rule: external payloads start at
// the container size rounded up to 4 bytes, twice.
func payloadBase(container []byte) uint32 {
	size := (uint32(len(container)) + 3) &^ 3
	return (size + 3) &^ 3
}

// storageImage lays the container at unit zero and each payload at its
// region-relative offset, padded out to whole 512 byte blocks so block
// sources never run off the end.
func storageImage(container []byte, payloads map[uint32][]byte) []byte {
	base := payloadBase(container)
	end := uint32(len(container))
	for off, p := range payloads {
		if base+off+uint32(len(p)) > end {
			end = base + off + uint32(len(p))
		}
	}
	img := make([]byte, (end+511)&^511+512)
	copy(img, container)
	for off, p := range payloads {
		copy(img[base+off:], p)
	}
	return img
}

// pattern fills n bytes with a seeded, position-dependent byte sequence.
func pattern(seed byte, n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = seed ^ byte(i) ^ byte(i>>8)
	}
	return p
}
