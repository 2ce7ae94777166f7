package route

import (
	"testing"

	"github.com/searchktools/fastserve/core/http"
)

func noop(*http.Context, string, any) {}

func paths(t *Table) []string {
	var out []string
	t.InOrder(func(r *Route) { out = append(out, r.Path) })
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTableRegisterAndSearch(t *testing.T) {
	table := NewTable()
	if err := table.Register(Route{Path: "/", Target: "index.html"}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := table.Register(Route{Path: "/about", Methods: []string{"GET"}, Handler: noop}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	tests := []struct {
		path   string
		found  bool
		static bool
	}{
		{"/", true, true},
		{"/about", true, false},
		{"/missing", false, false},
		{"/About", false, false},
	}

	for _, tt := range tests {
		r, ok := table.Search(tt.path)
		if ok != tt.found {
			t.Errorf("Path %s: expected found=%v, got %v", tt.path, tt.found, ok)
			continue
		}
		if ok && r.IsStatic() != tt.static {
			t.Errorf("Path %s: expected static=%v, got %v", tt.path, tt.static, r.IsStatic())
		}
	}
}

func TestTableMethodFiltering(t *testing.T) {
	table := NewTable()
	table.Register(Route{Path: "/about", Methods: []string{"GET"}, Handler: noop})

	r, _ := table.Search("/about")
	if !MethodAllowed(r, "GET") {
		t.Error("GET should be allowed")
	}
	if MethodAllowed(r, "POST") {
		t.Error("POST should not be allowed")
	}
	if MethodAllowed(r, "get") {
		t.Error("Method matching must be case-sensitive")
	}
	if MethodAllowed(nil, "GET") {
		t.Error("nil route allows nothing")
	}
}

func TestTableDuplicateFirstWins(t *testing.T) {
	table := NewTable()
	table.Register(Route{Path: "/docs", Target: "docs.html"})

	if err := table.Register(Route{Path: "/docs", Target: "other.html"}); err != ErrDuplicate {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}
	r, _ := table.Search("/docs")
	if r.Target != "docs.html" {
		t.Errorf("Expected first registration to win, got %s", r.Target)
	}
	if table.Len() != 1 {
		t.Errorf("Expected 1 route, got %d", table.Len())
	}
}

func TestTableRegisterValidation(t *testing.T) {
	table := NewTable()
	if err := table.Register(Route{Target: "x.html"}); err != ErrEmptyPath {
		t.Errorf("Expected ErrEmptyPath, got %v", err)
	}
	if err := table.Register(Route{Path: "/x"}); err != ErrNoTarget {
		t.Errorf("Expected ErrNoTarget, got %v", err)
	}
}

func TestTableRegisterCopiesMethods(t *testing.T) {
	table := NewTable()
	methods := []string{"GET"}
	table.Register(Route{Path: "/a", Methods: methods, Handler: noop})
	methods[0] = "DELETE"

	r, _ := table.Search("/a")
	if !r.Allows("GET") || r.Allows("DELETE") {
		t.Error("Route must not alias the caller's method slice")
	}
}

func TestTableInOrder(t *testing.T) {
	table := NewTable()
	for _, p := range []string{"/m", "/c", "/x", "/a", "/e", "/z"} {
		table.Register(Route{Path: p, Target: p + ".html"})
	}
	want := []string{"/a", "/c", "/e", "/m", "/x", "/z"}
	if got := paths(table); !equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestTableDeleteKeepsSubtrees(t *testing.T) {
	table := NewTable()
	//        /m
	//      /c    /x
	//    /a  /e    /z
	//       /d /f
	for _, p := range []string{"/m", "/c", "/x", "/a", "/e", "/z", "/d", "/f"} {
		table.Register(Route{Path: p, Target: "f"})
	}

	// two children: successor /d takes its place
	if err := table.Delete("/c"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	want := []string{"/a", "/d", "/e", "/f", "/m", "/x", "/z"}
	if got := paths(table); !equal(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}

	// one child
	if err := table.Delete("/x"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	// leaf
	if err := table.Delete("/f"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	want = []string{"/a", "/d", "/e", "/m", "/z"}
	if got := paths(table); !equal(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}

	for _, p := range want {
		if _, ok := table.Search(p); !ok {
			t.Errorf("Route %s lost after deletes", p)
		}
	}
	if table.Len() != len(want) {
		t.Errorf("Expected %d routes, got %d", len(want), table.Len())
	}
}

func TestTableDeleteSuccessorIsRightChild(t *testing.T) {
	table := NewTable()
	for _, p := range []string{"/m", "/c", "/a", "/e", "/f"} {
		table.Register(Route{Path: p, Target: "f"})
	}
	if err := table.Delete("/c"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	want := []string{"/a", "/e", "/f", "/m"}
	if got := paths(table); !equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestTableDeleteRootRefused(t *testing.T) {
	table := NewTable()
	table.Register(Route{Path: "/", Target: "index.html"})
	table.Register(Route{Path: "/b", Target: "b.html"})

	if err := table.Delete("/"); err != ErrRootDelete {
		t.Errorf("Expected ErrRootDelete, got %v", err)
	}
	if err := table.Delete("/nope"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Expected 2 routes, got %d", table.Len())
	}
}

func TestTableShapeFollowsInsertionOrder(t *testing.T) {
	table := NewTable()
	for _, p := range []string{"/a", "/b", "/c", "/d"} {
		table.Register(Route{Path: p, Target: "f"})
	}
	// sorted insertion degrades to a list
	if d := table.Depth(); d != 4 {
		t.Errorf("Expected depth 4, got %d", d)
	}
}

func BenchmarkTableSearch(b *testing.B) {
	table := NewTable()
	for _, p := range []string{"/m", "/c", "/x", "/a", "/e", "/z", "/about", "/docs"} {
		table.Register(Route{Path: p, Target: "f"})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		table.Search("/docs")
	}
}
