// Package route holds the route table: an unbalanced binary search tree keyed
// by URL path. A route either aliases a static file under the server root or
// binds a handler to a set of allowed methods.
//
// Routes are registered before serving starts; after that the tree is only
// read, so lookups take no lock.
package route

import (
	"errors"

	"github.com/searchktools/fastserve/core/http"
)

var (
	ErrDuplicate  = errors.New("route: path already registered")
	ErrEmptyPath  = errors.New("route: path is required")
	ErrNoTarget   = errors.New("route: static target or handler is required")
	ErrNotFound   = errors.New("route: path not registered")
	ErrRootDelete = errors.New("route: cannot delete the root route")
)

// Handler produces the full response for a dynamic route on ctx.
// dir is the route directory resolved under the server root.
type Handler func(ctx *http.Context, dir string, arg any)

// Route is one entry of the table
type Route struct {
	Path    string
	Target  string // static file under the server root; empty for dynamic routes
	Methods []string
	Dir     string // dynamic routes: directory under the server root
	Handler Handler
	Arg     any

	allowed map[string]struct{}
}

// IsStatic reports whether the route aliases a file
func (r *Route) IsStatic() bool {
	return r.Target != ""
}

// Allows reports whether method is in the route's allowed set.
// Matching is exact and case-sensitive.
func (r *Route) Allows(method string) bool {
	_, ok := r.allowed[method]
	return ok
}

type node struct {
	route       *Route
	left, right *node
}

// Table is a binary search tree of routes ordered by path
type Table struct {
	root *node
	n    int
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{}
}

// Register inserts r. If r.Path already exists the table is left unchanged
// and ErrDuplicate is returned: the first registration wins.
func (t *Table) Register(r Route) error {
	if r.Path == "" {
		return ErrEmptyPath
	}
	if r.Target == "" && r.Handler == nil {
		return ErrNoTarget
	}

	rt := r
	rt.Methods = append([]string(nil), r.Methods...)
	rt.allowed = make(map[string]struct{}, len(rt.Methods))
	for _, m := range rt.Methods {
		rt.allowed[m] = struct{}{}
	}
	n := &node{route: &rt}

	if t.root == nil {
		t.root = n
		t.n++
		return nil
	}

	cur := t.root
	for {
		switch {
		case r.Path == cur.route.Path:
			return ErrDuplicate
		case r.Path < cur.route.Path:
			if cur.left == nil {
				cur.left = n
				t.n++
				return nil
			}
			cur = cur.left
		default:
			if cur.right == nil {
				cur.right = n
				t.n++
				return nil
			}
			cur = cur.right
		}
	}
}

// Search returns the route registered for path
func (t *Table) Search(path string) (*Route, bool) {
	cur := t.root
	for cur != nil {
		switch {
		case path == cur.route.Path:
			return cur.route, true
		case path < cur.route.Path:
			cur = cur.left
		default:
			cur = cur.right
		}
	}
	return nil, false
}

// MethodAllowed reports whether r accepts method
func MethodAllowed(r *Route, method string) bool {
	return r != nil && r.Allows(method)
}

// Delete removes the route for path. The root route cannot be deleted.
// A node with two children is replaced by its in-order successor, so no
// other route is lost.
func (t *Table) Delete(path string) error {
	var parent *node
	cur := t.root
	for cur != nil && cur.route.Path != path {
		parent = cur
		if path < cur.route.Path {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	if cur == nil {
		return ErrNotFound
	}
	if parent == nil {
		return ErrRootDelete
	}

	if cur.left != nil && cur.right != nil {
		// promote the in-order successor, then unlink it from its old spot
		succParent, succ := cur, cur.right
		for succ.left != nil {
			succParent, succ = succ, succ.left
		}
		cur.route = succ.route
		if succParent == cur {
			succParent.right = succ.right
		} else {
			succParent.left = succ.right
		}
		t.n--
		return nil
	}

	child := cur.left
	if child == nil {
		child = cur.right
	}
	if parent.left == cur {
		parent.left = child
	} else {
		parent.right = child
	}
	t.n--
	return nil
}

// InOrder calls fn for every route in path order
func (t *Table) InOrder(fn func(*Route)) {
	inorder(t.root, fn)
}

func inorder(n *node, fn func(*Route)) {
	if n == nil {
		return
	}
	inorder(n.left, fn)
	fn(n.route)
	inorder(n.right, fn)
}

// Routes returns all routes in path order
func (t *Table) Routes() []*Route {
	out := make([]*Route, 0, t.n)
	t.InOrder(func(r *Route) {
		out = append(out, r)
	})
	return out
}

// Len returns the number of registered routes
func (t *Table) Len() int {
	return t.n
}

// Depth returns the height of the tree (0 when empty)
func (t *Table) Depth() int {
	return depth(t.root)
}

func depth(n *node) int {
	if n == nil {
		return 0
	}
	return 1 + max(depth(n.left), depth(n.right))
}

// Clear drops every route
func (t *Table) Clear() {
	t.root = nil
	t.n = 0
}
