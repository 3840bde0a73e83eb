package container

import "testing"

func TestMapInsertFind(t *testing.T) {
	m := NewMap[string, int]()
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.Insert("a", 10) // update

	v, ok := m.Find("a")
	if !ok || *v != 10 {
		t.Fatalf("Find(a) = %v, %v; want 10, true", v, ok)
	}
	if _, ok := m.Find("z"); ok {
		t.Fatalf("Find(z) should not be found")
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestMapFindByReferenceMutates(t *testing.T) {
	m := NewMap[int, []int]()
	m.Insert(1, []int{1, 2, 3})
	v, _ := m.Find(1)
	*v = append(*v, 4)
	v2, _ := m.Find(1)
	if len(*v2) != 4 {
		t.Fatalf("mutation through Find reference did not persist: %v", *v2)
	}
}

func TestMapDeletePreservesOthers(t *testing.T) {
	m := NewMap[string, int]()
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.Insert("c", 3)
	m.Delete("b")
	if _, ok := m.Find("b"); ok {
		t.Fatalf("b should be deleted")
	}
	if v, ok := m.Find("a"); !ok || *v != 1 {
		t.Fatalf("a should survive delete of b")
	}
	if v, ok := m.Find("c"); !ok || *v != 3 {
		t.Fatalf("c should survive delete of b")
	}
}

func TestVectorPreservesOrder(t *testing.T) {
	v := NewVector[int](0)
	for i := 0; i < 5; i++ {
		v.Push(i)
	}
	for i := 0; i < 5; i++ {
		if v.At(i) != i {
			t.Fatalf("At(%d) = %d, want %d", i, v.At(i), i)
		}
	}
}

func TestLatticeAcyclicByEdgeDedup(t *testing.T) {
	type key struct {
		ttl  int
		star bool
	}
	l := NewLattice[key, string]()
	a := l.AddNode(key{1, false}, "A")
	b := l.AddNode(key{2, false}, "B")
	c := l.AddNode(key{2, false}, "C-should-not-replace-B")

	if b != c {
		t.Fatalf("AddNode with an existing key should return the existing index")
	}
	l.AddEdge(a, b)
	l.AddEdge(a, b) // duplicate, should not double the edge
	if len(l.Successors(a)) != 1 {
		t.Fatalf("Successors(a) = %v, want exactly one edge", l.Successors(a))
	}
	if len(l.Predecessors(b)) != 1 {
		t.Fatalf("Predecessors(b) = %v, want exactly one edge", l.Predecessors(b))
	}
}
