// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package fit

import (
	"errors"
	"strings"
	"testing"

	"github.com/platinasystems/splfit/fdt"
)

func configTree(t *testing.T, confs ...tnode) *fdt.Tree {
	root := tnode{
		children: []tnode{
			{name: "images", children: []tnode{
				{name: "a"}, {name: "b"}, {name: "c"},
			}},
			{name: "configurations", children: confs},
		},
	}
	tree, err := fdt.Parse(buildTree(root))
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func TestSelectConfig(t *testing.T) {
	tree := configTree(t,
		tnode{name: "conf-1", props: []tprop{strprop("description", "board-x")}},
		tnode{name: "conf-2", props: []tprop{strprop("description", "board-y")}},
		tnode{name: "conf-3", props: []tprop{strprop("description", "board-y-rev2")}},
	)

	// predicate skipping the first entry selects the second, never the
	// equally matching third
	l := &Loader{Match: func(d string) bool {
		return strings.Contains(d, "board-y")
	}}
	node, err := l.findConfig(tree)
	if err != nil {
		t.Fatal(err)
	}
	if name := tree.NodeName(node); name != "conf-2" {
		t.Errorf("selected %q, want conf-2", name)
	}

	// nil predicate takes the first in document order
	l = &Loader{}
	if node, err = l.findConfig(tree); err != nil {
		t.Fatal(err)
	}
	if name := tree.NodeName(node); name != "conf-1" {
		t.Errorf("selected %q, want conf-1", name)
	}

	// no match is not found
	l = &Loader{Match: func(string) bool { return false }}
	if _, err = l.findConfig(tree); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("no match: got %v", err)
	}
}

func TestSelectConfigNoDescription(t *testing.T) {
	tree := configTree(t,
		tnode{name: "conf-1"},
		tnode{name: "conf-2", props: []tprop{strprop("description", "board-x")}},
	)
	l := &Loader{}
	if _, err := l.findConfig(tree); !errors.Is(err, ErrBadContainer) {
		t.Errorf("missing description: got %v", err)
	}
}

func TestImageNode(t *testing.T) {
	tree := configTree(t, tnode{name: "conf-1", props: []tprop{
		strprop("description", "board-x"),
		strprop("loadables", "a", "b", "c"),
	}})
	images, err := tree.PathOffset("/images")
	if err != nil {
		t.Fatal(err)
	}
	conf, err := tree.PathOffset("/configurations/conf-1")
	if err != nil {
		t.Fatal(err)
	}

	for i, want := range []string{"a", "b", "c"} {
		node, err := imageNode(tree, images, conf, "loadables", i)
		if err != nil {
			t.Fatalf("index %d: %v", i, err)
		}
		if name := tree.NodeName(node); name != want {
			t.Errorf("index %d: %q, want %q", i, name, want)
		}
	}
	if _, err = imageNode(tree, images, conf, "loadables", 3); !errors.Is(err, ErrIndexRange) {
		t.Errorf("index 3: got %v", err)
	}
	if _, err = imageNode(tree, images, conf, "firmware", 0); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("absent role: got %v", err)
	}
}

func TestImageNodeMissingImage(t *testing.T) {
	tree := configTree(t, tnode{name: "conf-1", props: []tprop{
		strprop("description", "board-x"),
		strprop("fdt", "nonesuch"),
	}})
	images, _ := tree.PathOffset("/images")
	conf, _ := tree.PathOffset("/configurations/conf-1")
	if _, err := imageNode(tree, images, conf, "fdt", 0); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("missing image node: got %v", err)
	}
}
