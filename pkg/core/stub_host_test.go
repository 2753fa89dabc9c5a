package core

// stubNode is the opaque node handle stubHost hands back; it exists only
// so tests can assert attach/detach calls happened with the right shape.
type stubNode struct {
	label string
}

// stubHost is a minimal Host used by this package's own tests. It keeps
// no real resources — just enough bookkeeping (render count, destroyed
// nodes) for assertions. See pkg/refhost for a fuller reference Host
// adapters can build on; this one stays unexported and test-only so
// pkg/core's tests don't need to import a package that imports pkg/core.
type stubHost struct {
	root       *stubNode
	renders    int
	destroyed  []*stubNode
	failAttach bool
}

func newStubHost() *stubHost {
	return &stubHost{root: &stubNode{label: "root"}}
}

func (h *stubHost) RootNode() Node { return h.root }

func (h *stubHost) CreateNode(c *Component) (Node, error) {
	return &stubNode{label: "node"}, nil
}

func (h *stubHost) AttachNode(parent, child Node) error {
	if h.failAttach {
		return errAttachFailed
	}
	return nil
}

func (h *stubHost) DetachNode(parent, child Node) error { return nil }

func (h *stubHost) DestroyNode(node Node) error {
	n, _ := node.(*stubNode)
	h.destroyed = append(h.destroyed, n)
	return nil
}

func (h *stubHost) RequestRender() { h.renders++ }

type stubAttachErr struct{}

func (stubAttachErr) Error() string { return "core: stub attach failed" }

var errAttachFailed = stubAttachErr{}

// newReadyRuntime builds a Runtime that is already attached to a stubHost,
// so tests can construct components without threading pre-ready buffering
// through every case. budget<=0 means unbounded.
func newReadyRuntime(budget float64) (*Runtime, *stubHost) {
	rt := NewRuntime(RuntimeConfig{}, budget)
	host := newStubHost()
	rt.SetHost(host)
	return rt, host
}
