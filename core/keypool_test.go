package core

import (
	"sync"
	"testing"
)

func TestKeyPool_Next(t *testing.T) {
	pool := NewKeyPool("k1", "k2", "k3")

	got := []string{pool.Next(), pool.Next(), pool.Next(), pool.Next()}
	want := []string{"k1", "k2", "k3", "k1"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Next() #%d = %q; want %q", i, got[i], want[i])
		}
	}
}

func TestKeyPool_NextEmpty(t *testing.T) {
	pool := NewKeyPool()
	if key := pool.Next(); key != "" {
		t.Errorf("Next() = %q; want empty", key)
	}
}

func TestKeyPool_concurrent(t *testing.T) {
	pool := NewKeyPool("k1", "k2")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if key := pool.Next(); key == "" {
				t.Error("Next() returned empty key")
			}
		}()
	}
	wg.Wait()
}
