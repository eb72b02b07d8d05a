// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Splfit runs the secondary-stage FIT loader against an image tree blob on
// the host, staging its payloads into a simulated memory window, e.g.
//
//	splfit -c board-x -text 0x8000000 system.itb
//	splfit -show http://server/system.itb
//
// With -show it just dumps the tree.
package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/platinasystems/fdt"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"
	"github.com/platinasystems/url"

	"github.com/platinasystems/splfit/fit"
)

const usage = `splfit [-v] [-show] [-c MATCH] [-b BLOCKLEN] [-align LEN]
	[-base ADDR] [-mem SIZE] [-text ADDR] URL`

func main() {
	if err := cmd(os.Args[1:]...); err != nil {
		log.Print("err", err)
		os.Exit(1)
	}
}

func cmd(args ...string) error {
	flag, args := flags.New(args, "-v", "-show")
	parm, args := parms.New(args, "-c", "-b", "-align", "-base", "-mem",
		"-text")
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", usage)
	}

	r, err := url.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}

	if flag.ByName["-show"] {
		t := &fdt.Tree{Debug: false, IsLittleEndian: false}
		if err = t.Parse(b); err != nil {
			return err
		}
		fmt.Println(t)
		return nil
	}

	align, err := parmUint(parm, "-align", 64)
	if err != nil {
		return err
	}
	memBase, err := parmUint(parm, "-base", 0)
	if err != nil {
		return err
	}
	memSize, err := parmUint(parm, "-mem", 64<<20)
	if err != nil {
		return err
	}
	textBase, err := parmUint(parm, "-text", memBase+memSize)
	if err != nil {
		return err
	}
	blockLen, err := parmUint(parm, "-b", 0)
	if err != nil {
		return err
	}

	var src fit.Source
	if blockLen != 0 {
		src = fit.NewBlockSource(bytes.NewReader(b), blockLen)
	} else {
		src = fit.NewFileSource(bytes.NewReader(b), align)
	}

	l := &fit.Loader{
		Source:   src,
		Mem:      &fit.Mem{Base: memBase, Buf: make([]byte, memSize)},
		TextBase: textBase,
		Align:    align,
		Debug:    flag.ByName["-v"],
	}
	if match := parm.ByName["-c"]; match != "" {
		l.Match = func(description string) bool {
			return strings.Contains(description, match)
		}
	}

	res, err := l.Load(0, b)
	if err != nil {
		return err
	}
	show("firmware", res.Firmware)
	show("fdt", res.FDT)
	for i, img := range res.Loadables {
		show(fmt.Sprint("loadable[", i+1, "]"), img)
	}
	return nil
}

func show(name string, img fit.Image) {
	fmt.Printf("%-12s load=%#010x size=%#x entry=%#010x arch=%d os=%d\n",
		name, img.Addr, img.Size, img.Entry, img.Arch, img.OS)
}

func parmUint(parm *parms.Parms, name string, def uint32) (uint32, error) {
	s := parm.ByName[name]
	if s == "" {
		return def, nil
	}
	u, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %v", name, s, err)
	}
	return uint32(u), nil
}
