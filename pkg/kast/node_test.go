package kast

import "testing"

func TestGetNodeByIDFirstMatchWins(t *testing.T) {
	root := NewRoot()
	outer := root.AddChild(&Node{ID: "outer"})
	outer.AddChild(&Node{ID: "dup", Data: []byte{1}})
	root.AddChild(&Node{ID: "dup", Data: []byte{2}})

	found, ok := root.GetNodeByID("dup")
	if !ok {
		t.Fatal("expected to find node")
	}
	if len(found.Data) != 1 || found.Data[0] != 1 {
		t.Errorf("expected first DFS hit, got %+v", found)
	}
}

func TestGetNodeByIDMissing(t *testing.T) {
	root := NewRoot()
	if _, ok := root.GetNodeByID("missing"); ok {
		t.Error("expected ok = false")
	}
}

func TestTraverseVisitsInOrder(t *testing.T) {
	root := NewRoot()
	a := root.AddChild(&Node{ID: "a"})
	a.AddChild(&Node{ID: "a.1"})
	root.AddChild(&Node{ID: "b"})

	var order []string
	root.Traverse(func(n *Node) bool {
		order = append(order, n.ID)
		return true
	})

	want := []string{"root", "a", "a.1", "b"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestTraverseEarlyStop(t *testing.T) {
	root := NewRoot()
	root.AddChild(&Node{ID: "a"})
	root.AddChild(&Node{ID: "b"})

	var visited []string
	root.Traverse(func(n *Node) bool {
		visited = append(visited, n.ID)
		return n.ID != "a"
	})

	if len(visited) != 2 {
		t.Errorf("expected traversal to stop after 'a', got %v", visited)
	}
}

func TestTextFallsBackToRawBytes(t *testing.T) {
	n := &Node{Data: []byte("hello")}
	if n.Text() != "hello" {
		t.Errorf("Text() = %q", n.Text())
	}
	n.SetText("decoded")
	if n.Text() != "decoded" {
		t.Errorf("Text() = %q after SetText", n.Text())
	}
}
