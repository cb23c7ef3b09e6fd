package trace

// PathNode is one node of an evaluation trace tree.
type PathNode struct {
	Type     string         `json:"type" yaml:"type"`
	Name     string         `json:"name" yaml:"name"`
	Result   any            `json:"result,omitempty" yaml:"result,omitempty"`
	Details  map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Children []*PathNode    `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewPathNode creates a node with an empty details map.
func NewPathNode(nodeType string, name string) *PathNode {
	return &PathNode{
		Type:    nodeType,
		Name:    name,
		Details: map[string]any{},
	}
}

// AddChild appends child and returns it.
func (n *PathNode) AddChild(child *PathNode) *PathNode {
	n.Children = append(n.Children, child)
	return child
}

// Walk visits n and all descendants depth first, stopping when fn returns false.
func (n *PathNode) Walk(fn func(node *PathNode) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first node (depth first) with the given name.
func (n *PathNode) Find(name string) *PathNode {
	var found *PathNode
	n.Walk(func(node *PathNode) bool {
		if node.Name == name {
			found = node
			return false
		}
		return true
	})
	return found
}
