package vdom

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement   VKind = iota // <div>, <button>, etc.
	KindText                   // Plain text node
	KindFragment               // Grouping without wrapper
	KindComponent              // Nested component
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	default:
		return "Unknown"
	}
}

// VNode is a view tree node.
type VNode struct {
	Kind     VKind     // Node type
	Tag      string    // Element tag name (e.g., "div")
	Props    Props     // Attributes
	Children []*VNode  // Child nodes
	Key      string    // Identity among siblings
	Text     string    // For KindText
	Comp     Component // For KindComponent
}

// Props holds element attributes.
type Props map[string]any

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// Component is anything that can produce a VNode on demand. Placeholder
// nodes of KindComponent hold one.
type Component interface {
	Render() *VNode
}

// Placeholder creates a KindComponent node for c.
func Placeholder(c Component) *VNode {
	return &VNode{Kind: KindComponent, Comp: c}
}

// Count returns the number of nodes in the tree rooted at v, not descending
// into component placeholders.
func (v *VNode) Count() int {
	if v == nil {
		return 0
	}
	n := 1
	for _, child := range v.Children {
		n += child.Count()
	}
	return n
}
