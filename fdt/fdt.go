// Read-only views of flattened device tree blobs.
//
// Unlike parsers that explode the blob into maps, this package walks the
// structure block in place, so subnodes come back in document order and the
// blob is never copied or mutated.
package fdt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	magic      = 0xd00dfeed
	begin_node = 0x1 // Start node: full name
	end_node   = 0x2 // End node
	prop       = 0x3 // Property
	nop        = 0x4 // nop
	end        = 0x9 // End of fdt
)

// Sentinel is returned by PropUint32 for a missing or mis-sized cell. It is
// never a valid address or size and callers must reject it as such.
const Sentinel = ^uint32(0)

var (
	ErrBadMagic  = errors.New("fdt: bad magic")
	ErrTruncated = errors.New("fdt: blob shorter than header claims")
	ErrNotFound  = errors.New("fdt: no such node")
)

type header struct {
	Magic        uint32
	TotalSize    uint32 // total size of DT block
	OffDtStruct  uint32 // offset to structure
	OffDtStrings uint32 // offset to strings
	OffMemRsvmap uint32 // offset to memory reserve map

	Version               uint32
	LastCompatibleVersion uint32

	BootCpuidPhys uint32
	SizeDtStrings uint32
	SizeDtStruct  uint32
}

// Tree is a structural view over a raw blob. Node handles are byte offsets
// of BEGIN_NODE tokens within the blob; they are only meaningful with the
// Tree that produced them.
type Tree struct {
	header
	buf []byte
}

func align(x int, a int) int {
	return (x + a - 1) & ^(a - 1)
}

// Parse validates the header and block bounds and returns a view over b.
// The blob is borrowed, not copied.
func Parse(b []byte) (*Tree, error) {
	t := &Tree{buf: b}
	if err := binary.Read(bytes.NewReader(b), binary.BigEndian, &t.header); err != nil {
		return nil, fmt.Errorf("fdt: header: %w", err)
	}
	if t.Magic != magic {
		return nil, ErrBadMagic
	}
	if int(t.header.TotalSize) > len(b) {
		return nil, ErrTruncated
	}
	if t.OffDtStruct >= t.header.TotalSize || t.OffDtStrings >= t.header.TotalSize {
		return nil, ErrTruncated
	}
	return t, nil
}

// BlobSize reads the declared total size out of a blob header, for callers
// that have probed only the first unit of storage and need to know how much
// more to fetch.
func BlobSize(b []byte) (uint32, error) {
	if len(b) < 8 {
		return 0, ErrTruncated
	}
	if binary.BigEndian.Uint32(b) != magic {
		return 0, ErrBadMagic
	}
	return binary.BigEndian.Uint32(b[4:]), nil
}

func (t *Tree) String() string {
	return fmt.Sprintf("magic: 0x%x, version %d %d, total size: 0x%x, offset struct 0x%x strings 0x%x mem-reserve-map 0x%x",
		t.Magic, t.Version, t.LastCompatibleVersion,
		t.header.TotalSize, t.OffDtStruct, t.OffDtStrings, t.OffMemRsvmap)
}

func (t *Tree) TotalSize() uint32 { return t.header.TotalSize }

// token returns the tag at offset off, or end when off runs out of bounds.
func (t *Tree) token(off int) uint32 {
	if off < 0 || off+4 > len(t.buf) || uint32(off) >= t.header.TotalSize {
		return end
	}
	return binary.BigEndian.Uint32(t.buf[off:])
}

// next returns the offset of the token following the one at off.
func (t *Tree) next(off int) int {
	switch t.token(off) {
	case begin_node:
		nameLen := bytes.IndexByte(t.buf[off+4:], 0)
		if nameLen < 0 {
			return -1
		}
		return align(off+4+nameLen+1, 4)
	case prop:
		if off+12 > len(t.buf) {
			return -1
		}
		valueSize := int(binary.BigEndian.Uint32(t.buf[off+4:]))
		return align(off+12+valueSize, 4)
	case end_node, nop:
		return off + 4
	}
	return -1
}

// Root returns the handle of the root node.
func (t *Tree) Root() (int, error) {
	off := int(t.OffDtStruct)
	for t.token(off) == nop {
		off = t.next(off)
	}
	if t.token(off) != begin_node {
		return -1, ErrNotFound
	}
	return off, nil
}

// NodeName returns the node's unit name ("/" for the root).
func (t *Tree) NodeName(node int) string {
	if t.token(node) != begin_node {
		return ""
	}
	nameLen := bytes.IndexByte(t.buf[node+4:], 0)
	if nameLen <= 0 {
		return "/"
	}
	return string(t.buf[node+4 : node+4+nameLen])
}

// FirstSubnode returns the handle of node's first child in document order.
func (t *Tree) FirstSubnode(node int) (int, bool) {
	if t.token(node) != begin_node {
		return -1, false
	}
	off := t.next(node)
	for off > 0 {
		switch t.token(off) {
		case begin_node:
			return off, true
		case prop, nop:
			off = t.next(off)
		default:
			return -1, false
		}
	}
	return -1, false
}

// skip advances past the whole node at off, to the token after its END_NODE.
func (t *Tree) skip(node int) int {
	depth := 0
	off := node
	for off > 0 {
		switch t.token(off) {
		case begin_node:
			depth++
		case end_node:
			depth--
			if depth == 0 {
				return t.next(off)
			}
		case end:
			return -1
		}
		off = t.next(off)
	}
	return -1
}

// NextSubnode returns the handle of node's next sibling in document order.
func (t *Tree) NextSubnode(node int) (int, bool) {
	off := t.skip(node)
	for off > 0 {
		switch t.token(off) {
		case begin_node:
			return off, true
		case nop:
			off = t.next(off)
		default:
			// end_node closes the parent; props never follow
			// subnodes in a well-formed blob.
			return -1, false
		}
	}
	return -1, false
}

// PathOffset resolves an absolute path like "/images" to a node handle.
func (t *Tree) PathOffset(path string) (int, error) {
	node, err := t.Root()
	if err != nil {
		return -1, err
	}
	if path == "/" || path == "" {
		return node, nil
	}
	for _, name := range bytes.Split([]byte(path), []byte{'/'}) {
		if len(name) == 0 {
			continue
		}
		child, ok := t.FirstSubnode(node)
		for ok && t.NodeName(child) != string(name) {
			child, ok = t.NextSubnode(child)
		}
		if !ok {
			return -1, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		node = child
	}
	return node, nil
}

// Subnode returns the child of node with the given unit name.
func (t *Tree) Subnode(node int, name string) (int, bool) {
	child, ok := t.FirstSubnode(node)
	for ok {
		if t.NodeName(child) == name {
			return child, true
		}
		child, ok = t.NextSubnode(child)
	}
	return -1, false
}

func (t *Tree) getString(offset int) string {
	o := int(t.OffDtStrings) + offset
	if o < 0 || o >= len(t.buf) {
		return ""
	}
	l := bytes.IndexByte(t.buf[o:], 0)
	if l < 0 {
		return ""
	}
	return string(t.buf[o : o+l])
}

// Prop returns the raw value of the named property of node. The returned
// slice aliases the blob.
func (t *Tree) Prop(node int, name string) ([]byte, bool) {
	if t.token(node) != begin_node {
		return nil, false
	}
	off := t.next(node)
	for off > 0 {
		switch t.token(off) {
		case prop:
			if off+12 > len(t.buf) {
				return nil, false
			}
			valueSize := int(binary.BigEndian.Uint32(t.buf[off+4:]))
			nameOffset := int(binary.BigEndian.Uint32(t.buf[off+8:]))
			if off+12+valueSize > len(t.buf) {
				return nil, false
			}
			if t.getString(nameOffset) == name {
				return t.buf[off+12 : off+12+valueSize], true
			}
			off = t.next(off)
		case nop:
			off = t.next(off)
		default:
			return nil, false
		}
	}
	return nil, false
}

// PropUint32 parses the named property as a big-endian 32 bit cell,
// yielding Sentinel when the property is absent or not exactly 4 bytes.
func (t *Tree) PropUint32(node int, name string) uint32 {
	v, ok := t.Prop(node, name)
	if !ok || len(v) != 4 {
		return Sentinel
	}
	return binary.BigEndian.Uint32(v)
}

// PropString returns the first NUL-terminated string of the named property.
func (t *Tree) PropString(node int, name string) (string, bool) {
	v, ok := t.Prop(node, name)
	if !ok {
		return "", false
	}
	if i := bytes.IndexByte(v, 0); i >= 0 {
		v = v[:i]
	}
	return string(v), true
}
