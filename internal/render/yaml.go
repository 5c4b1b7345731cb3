package render

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/TFMV/ptree/internal/walk"
)

// yamlNode is the nested form written by the YAML renderer.
type yamlNode struct {
	walk.Entry `yaml:",inline"`
	Children   []yamlNode `yaml:"children,omitempty"`
}

type treeNode struct {
	entry    *walk.Entry
	children []*treeNode
}

// yamlRenderer materialises the whole tree so that nested children and
// directory rollups are known before anything is written.
type yamlRenderer struct {
	w     io.Writer
	sizes sizeStack
	root  *treeNode
	open  []*treeNode
}

func newYAML(w io.Writer) *yamlRenderer {
	return &yamlRenderer{w: w}
}

func (r *yamlRenderer) Visit(step walk.Step) error {
	r.sizes.visit(step)
	n := &treeNode{entry: step.Entry}
	if r.root == nil {
		r.root = n
	} else if len(r.open) > 0 {
		parent := r.open[len(r.open)-1]
		parent.children = append(parent.children, n)
	}
	if step.Descend {
		r.open = append(r.open, n)
	}
	return nil
}

func (r *yamlRenderer) Leave(e *walk.Entry) error {
	r.sizes.leave(e)
	r.open = r.open[:len(r.open)-1]
	return nil
}

func (r *yamlRenderer) Finish() error {
	if r.root == nil {
		return nil
	}
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(r.root.node()); err != nil {
		return err
	}
	return enc.Close()
}

func (n *treeNode) node() yamlNode {
	out := yamlNode{Entry: *n.entry}
	if len(n.children) > 0 {
		out.Children = make([]yamlNode, len(n.children))
		for i, c := range n.children {
			out.Children[i] = c.node()
		}
	}
	return out
}
