// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fit

import "io"

// Source is a storage read capability. Each instance is either byte- or
// block-addressed, per its Geom; start and count are in that unit. Reads
// block until done and report the units actually transferred — the loader
// treats anything short of count as fatal.
type Source interface {
	ReadUnits(start, count uint32, dst []byte) (uint32, error)
	Geom() *Geom
}

// FileSource reads at arbitrary byte offsets, e.g. from a file-backed
// image, honoring the platform DMA alignment.
type FileSource struct {
	r    io.ReaderAt
	geom Geom
}

func NewFileSource(r io.ReaderAt, align uint32) *FileSource {
	return &FileSource{
		r:    r,
		geom: Geom{ByteAddressed: true, Align: align},
	}
}

func (s *FileSource) Geom() *Geom { return &s.geom }

func (s *FileSource) ReadUnits(start, count uint32, dst []byte) (uint32, error) {
	n, err := s.r.ReadAt(dst[:count], int64(start))
	if err == io.EOF {
		err = nil // short count already says so
	}
	return uint32(n), err
}

// BlockSource reads whole fixed-length units addressed by index, e.g. raw
// sectors of an MMC or flash partition.
type BlockSource struct {
	r    io.ReaderAt
	geom Geom
}

func NewBlockSource(r io.ReaderAt, blockLen uint32) *BlockSource {
	return &BlockSource{
		r:    r,
		geom: Geom{BlockLen: blockLen},
	}
}

func (s *BlockSource) Geom() *Geom { return &s.geom }

func (s *BlockSource) ReadUnits(start, count uint32, dst []byte) (uint32, error) {
	bl := s.geom.BlockLen
	n, err := s.r.ReadAt(dst[:count*bl], int64(start)*int64(bl))
	if err == io.EOF {
		err = nil
	}
	return uint32(n) / bl, err
}
