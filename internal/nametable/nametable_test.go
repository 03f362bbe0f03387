package nametable

import (
	"fmt"
	"sync"
	"testing"
)

func TestEmptyName(t *testing.T) {
	tab := New()
	if id := tab.GetOrInsert(""); id != 0 {
		t.Errorf("GetOrInsert(\"\") = %d, want 0", id)
	}
	if name := tab.Name(0); name != "" {
		t.Errorf("Name(0) = %q, want empty", name)
	}
}

func TestRoundTrip(t *testing.T) {
	tab := New()
	names := []string{"stone.png", "dirt.png^[crack:1:2", "stone.png", "λ.png"}
	for _, n := range names {
		id := tab.GetOrInsert(n)
		if got := tab.Name(id); got != n {
			t.Errorf("Name(GetOrInsert(%q)) = %q", n, got)
		}
	}
	if tab.Len() != 4 {
		t.Errorf("Len() = %d, want 4", tab.Len())
	}
	if tab.GetOrInsert("stone.png") != 1 {
		t.Errorf("ids should be assigned in call order")
	}
}

func TestFindDoesNotInsert(t *testing.T) {
	tab := New()
	if id := tab.Find("missing.png"); id != 0 {
		t.Errorf("Find(missing) = %d, want 0", id)
	}
	if tab.Len() != 1 {
		t.Errorf("Find inserted an entry")
	}
	if got := tab.Name(42); got != "" {
		t.Errorf("Name(out of range) = %q, want empty", got)
	}
}

func TestConcurrentInsertSameName(t *testing.T) {
	tab := New()
	const workers = 16
	ids := make([]ID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tab.GetOrInsert(fmt.Sprintf("other%d.png", j))
			}
			ids[i] = tab.GetOrInsert("shared.png")
		}(i)
	}
	wg.Wait()
	for i, id := range ids {
		if id != ids[0] {
			t.Fatalf("worker %d got id %d, worker 0 got %d", i, id, ids[0])
		}
	}
	if tab.Name(ids[0]) != "shared.png" {
		t.Errorf("Name(%d) = %q", ids[0], tab.Name(ids[0]))
	}
}
