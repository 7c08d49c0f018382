package lrucache

import "testing"

type sizedString struct {
	value string
	size  int64
}

func (s sizedString) Size() int64 { return s.size }

func TestAddAndGet(t *testing.T) {
	c := New[string, sizedString](100)
	c.Add("a", sizedString{"a-value", 10})

	v, ok := c.Get("a")
	if !ok {
		t.Fatalf("expected hit for key a")
	}
	if v.value != "a-value" {
		t.Errorf("got %q, want %q", v.value, "a-value")
	}
	if c.Size() != 10 {
		t.Errorf("size = %d, want 10", c.Size())
	}
}

func TestCapacityInvariant(t *testing.T) {
	c := New[string, sizedString](100)
	for i, size := range []int64{40, 40, 40, 40} {
		key := string(rune('a' + i))
		c.Add(key, sizedString{key, size})
		if c.Size() > 100 {
			t.Fatalf("after adding %s: size %d exceeds capacity 100", key, c.Size())
		}
	}
}

func TestLRUOrdering(t *testing.T) {
	c := New[string, sizedString](100)
	c.Add("k1", sizedString{"v1", 40})
	c.Add("k2", sizedString{"v2", 40})
	c.Get("k1") // promote k1

	// Adding k3 (40) pushes size to 120; one eviction needed to get back to <=100.
	c.Add("k3", sizedString{"v3", 40})

	if _, ok := c.Get("k2"); ok {
		t.Errorf("expected k2 to be evicted, but it is still present")
	}
	if _, ok := c.Get("k1"); !ok {
		t.Errorf("expected k1 to still be present")
	}
	if _, ok := c.Get("k3"); !ok {
		t.Errorf("expected k3 to be present")
	}
	if c.Size() > 100 {
		t.Errorf("size %d exceeds capacity 100", c.Size())
	}
}

func TestAddOversizedValuePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic when adding a value larger than capacity")
		}
	}()
	c := New[string, sizedString](10)
	c.Add("too-big", sizedString{"x", 20})
}

func TestAddReplacesExistingKey(t *testing.T) {
	c := New[string, sizedString](100)
	c.Add("k", sizedString{"v1", 30})
	c.Add("k", sizedString{"v2", 50})

	if c.Size() != 50 {
		t.Errorf("size = %d, want 50 (replacement should not double-count)", c.Size())
	}
	v, ok := c.Get("k")
	if !ok || v.value != "v2" {
		t.Errorf("expected replaced value v2, got %+v, ok=%v", v, ok)
	}
}

func TestEvictsMultipleWhenNeeded(t *testing.T) {
	c := New[string, sizedString](45)
	c.Add("a", sizedString{"a", 20})
	c.Add("b", sizedString{"b", 20})
	// Adding c (30) requires evicting both a and b to make room.
	c.Add("c", sizedString{"c", 30})

	if _, ok := c.Get("a"); ok {
		t.Errorf("expected a evicted")
	}
	if _, ok := c.Get("b"); ok {
		t.Errorf("expected b evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Errorf("expected c resident")
	}
	if c.Size() != 30 {
		t.Errorf("size = %d, want 30", c.Size())
	}
}
