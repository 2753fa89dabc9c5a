// Package refhost is a minimal in-memory implementation of core.Host. It
// keeps a plain tree of *Node values instead of talking to any real
// renderer, so the root ride package's tests (and anyone learning the Host
// contract) have a working, dependency-free host to mount against. A real
// adapter — a GPU surface, a DOM, a terminal grid — follows the same
// shape but does something with CreateNode/AttachNode/RequestRender
// instead of just bookkeeping.
package refhost

import (
	"fmt"
	"sync/atomic"

	"github.com/ridecore/ride/pkg/core"
)

// Node is the opaque handle refhost hands back through core.Host. It
// records its own identity and children so a test can assert on tree
// shape after a flush.
type Node struct {
	ID       int64
	Label    string
	Parent   *Node
	Children []*Node
}

var nextNodeID int64

// Host is a core.Host backed by an in-memory Node tree rooted at Root.
// Renders is incremented every time RequestRender is called, so tests can
// assert the render barrier fired at most once per flush.
type Host struct {
	Root    *Node
	Renders int

	created  []*Node
	attached []struct{ Parent, Child *Node }
}

// New returns a Host with an empty root node.
func New() *Host {
	return &Host{Root: &Node{ID: atomic.AddInt64(&nextNodeID, 1), Label: "root"}}
}

func (h *Host) RootNode() core.Node { return h.Root }

// CreateNode labels the new node after the component's logic type so a
// test failure is readable without threading extra names through.
func (h *Host) CreateNode(component *core.Component) (core.Node, error) {
	n := &Node{
		ID:    atomic.AddInt64(&nextNodeID, 1),
		Label: fmt.Sprintf("%T", component.Logic()),
	}
	h.created = append(h.created, n)
	return n, nil
}

func (h *Host) AttachNode(parent, child core.Node) error {
	p, ok := parent.(*Node)
	if !ok {
		return fmt.Errorf("refhost: parent is not a *refhost.Node (got %T)", parent)
	}
	c, ok := child.(*Node)
	if !ok {
		return fmt.Errorf("refhost: child is not a *refhost.Node (got %T)", child)
	}
	c.Parent = p
	p.Children = append(p.Children, c)
	h.attached = append(h.attached, struct{ Parent, Child *Node }{p, c})
	return nil
}

func (h *Host) DetachNode(parent, child core.Node) error {
	p, ok := parent.(*Node)
	if !ok {
		return fmt.Errorf("refhost: parent is not a *refhost.Node (got %T)", parent)
	}
	c, ok := child.(*Node)
	if !ok {
		return fmt.Errorf("refhost: child is not a *refhost.Node (got %T)", child)
	}
	for i, ch := range p.Children {
		if ch == c {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	c.Parent = nil
	return nil
}

func (h *Host) DestroyNode(node core.Node) error {
	if _, ok := node.(*Node); !ok {
		return fmt.Errorf("refhost: node is not a *refhost.Node (got %T)", node)
	}
	return nil
}

func (h *Host) RequestRender() { h.Renders++ }

// Teardown satisfies core.Teardownable; refhost has nothing to release.
func (h *Host) Teardown() error { return nil }
