package core

// Node is an opaque host-side handle. The core never inspects it; it is
// created by Host.CreateNode and threaded back through Host's other
// methods and Component.Node.
type Node any

// Host is the minimal surface a renderer/adapter must implement for the
// core to drive it. Concrete hosts (a GPU/Canvas/DOM renderer, a font
// atlas manager, a pointer event router) live entirely outside this
// package; see pkg/refhost for an in-memory reference implementation used
// by the root ride package's tests (this package's own tests use a
// test-only stub host instead).
type Host interface {
	// RootNode returns the opaque handle for the root container node.
	RootNode() Node

	// CreateNode returns a new opaque node handle for component. The core
	// stores the result on the component and passes it to AttachNode.
	CreateNode(component *Component) (Node, error)

	// AttachNode attaches child beneath parent. Returning an error is
	// reported under PhaseAttach and the component is skipped for the
	// current frame; a later dirty-mark retries it.
	AttachNode(parent, child Node) error

	// DetachNode removes child from beneath parent.
	DetachNode(parent, child Node) error

	// DestroyNode releases host-side resources tied to node.
	DestroyNode(node Node) error

	// RequestRender signals the host to present. The Scheduler calls this
	// at most once per host per flush, after every touched component in
	// that flush has been processed.
	RequestRender()
}

// Teardownable is implemented by hosts that need to release top-level
// resources when the Ride facade unmounts an app. It is optional.
type Teardownable interface {
	Teardown() error
}

// ChildParenter lets a component override the host node used as the
// attach point for one specific child, enabling slotting (a parent that
// renders its children into some nested host node rather than its own).
type ChildParenter interface {
	GetChildParent(child *Component) Node
}
