// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package fit loads secondary-stage boot payloads from a flattened image
// tree container: the firmware image, the device tree matching the running
// board, and any further loadable images, staged into a physical memory
// window from block- or byte-addressed storage.
package fit

// Arch is an architecture id, per the legacy uImage header values.
type Arch uint8

const (
	ArchInvalid Arch = 0
	ArchARM     Arch = 2
	ArchI386    Arch = 3
	ArchMIPS    Arch = 5
	ArchPPC     Arch = 7
	ArchARM64   Arch = 22
	ArchRISCV   Arch = 26
)

// DefaultArch is used when an image carries no arch property and no
// resolver was injected.
const DefaultArch = ArchARM

// OS is an operating-system tag, per the legacy uImage header values.
type OS uint8

const (
	OSInvalid  OS = 0
	OSLinux    OS = 5
	OSFirmware OS = 17 // boot firmware, the primary payload
)

// Image describes one staged payload.
type Image struct {
	Addr  uint32 // final load address
	Size  uint32 // payload length after overhead trim and post-processing
	Entry uint32
	Arch  Arch
	OS    OS
}

// Result is the full set of payloads staged by one Load invocation.
type Result struct {
	Firmware  Image
	FDT       Image
	Loadables []Image
}

// Loader stages the payloads of a FIT container. Source and Mem are
// required; the hooks may be left nil for their defaults: Match nil takes
// the first configuration, ArchID nil yields DefaultArch, PostProcess nil
// is the identity.
type Loader struct {
	Source   Source
	Mem      *Mem
	TextBase uint32 // upper bound for the container staging address
	Align    uint32 // DMA alignment, power of two

	Match       func(description string) bool
	ArchID      func(arch string) Arch
	PostProcess func(payload []byte) ([]byte, error)

	Debug bool
}

func (l *Loader) archID(s string) Arch {
	if l.ArchID != nil {
		return l.ArchID(s)
	}
	switch s {
	case "arm":
		return ArchARM
	case "arm64", "aarch64":
		return ArchARM64
	case "x86", "i386":
		return ArchI386
	case "mips":
		return ArchMIPS
	case "powerpc", "ppc":
		return ArchPPC
	case "riscv":
		return ArchRISCV
	}
	return DefaultArch
}

func (l *Loader) match(description string) bool {
	if l.Match == nil {
		return true
	}
	return l.Match(description)
}
