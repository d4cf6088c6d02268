package ast

// Unit groups the files that are analyzed together: one Go package, or one
// tree-sitter source file. It owns node identity.
type Unit struct {
	Files []*File
	nodes []*Node
}

// NewUnit creates an empty unit.
func NewUnit() *Unit {
	return &Unit{nodes: []*Node{nil}}
}

// Node returns the node with the given ID, or nil.
func (u *Unit) Node(id uint32) *Node {
	if int(id) >= len(u.nodes) {
		return nil
	}
	return u.nodes[id]
}

// Len returns the number of nodes allocated in the unit.
func (u *Unit) Len() int { return len(u.nodes) - 1 }

// NewFile registers a file with the unit.
func (u *Unit) NewFile(path string, lang *Language, source []byte) *File {
	f := &File{Path: path, Language: lang, Source: source, unit: u}
	u.Files = append(u.Files, f)
	return f
}

// File is one source file of a unit.
type File struct {
	Path     string
	Language *Language
	Source   []byte
	Root     *Node

	unit *Unit
}

// Unit returns the owning unit.
func (f *File) Unit() *Unit { return f.unit }

// NewNode allocates a node belonging to f.
func (f *File) NewNode(kind Kind, span Span) *Node {
	if span.File == "" {
		span.File = f.Path
	}
	n := &Node{Kind: kind, Span: span, file: f}
	if f.unit != nil {
		n.id = uint32(len(f.unit.nodes))
		f.unit.nodes = append(f.unit.nodes, n)
	}
	return n
}

// Leaf allocates a synthetic node carrying text.
func (f *File) Leaf(kind Kind, text string) *Node {
	return f.NewNode(kind, Span{}).SetText(text)
}

// SetRoot installs the root node.
func (f *File) SetRoot(root *Node) {
	f.Root = root
}
