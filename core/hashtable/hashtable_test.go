package hashtable

import (
	"fmt"
	"testing"
)

func TestTableRoundTrip(t *testing.T) {
	for _, hash := range []struct {
		name string
		fn   HashFunc
	}{
		{"default", nil},
		{"xxhash", XXHash},
	} {
		t.Run(hash.name, func(t *testing.T) {
			table := New[int](16, hash.fn)

			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("/static/file-%d.html", i)
				if v := table.PutString(key, i); v != i {
					t.Fatalf("Put returned %d, want %d", v, i)
				}
				got, ok := table.GetString(key)
				if !ok || got != i {
					t.Fatalf("Get(%s): expected %d, got %d (ok=%v)", key, i, got, ok)
				}
			}

			if table.Len() != 200 {
				t.Errorf("Expected 200 entries, got %d", table.Len())
			}

			for i := 0; i < 200; i += 2 {
				key := fmt.Sprintf("/static/file-%d.html", i)
				v, ok := table.DeleteString(key)
				if !ok || v != i {
					t.Fatalf("Delete(%s): expected %d, got %d (ok=%v)", key, i, v, ok)
				}
				if _, ok := table.GetString(key); ok {
					t.Fatalf("Get(%s) after delete should miss", key)
				}
			}

			if table.Len() != 100 {
				t.Errorf("Expected 100 entries, got %d", table.Len())
			}
		})
	}
}

func TestTableMissingKey(t *testing.T) {
	table := New[string](0, nil)
	if table.Buckets() != DefaultSize {
		t.Errorf("Expected default size %d, got %d", DefaultSize, table.Buckets())
	}
	if _, ok := table.GetString("nope"); ok {
		t.Error("Expected miss on empty table")
	}
	if _, ok := table.DeleteString("nope"); ok {
		t.Error("Expected delete miss on empty table")
	}
}

func TestTableDuplicateKeysShadow(t *testing.T) {
	table := New[string](1, nil)
	table.PutString("k", "first")
	table.PutString("k", "second")

	if table.Len() != 2 {
		t.Fatalf("Duplicate put should insert, got %d entries", table.Len())
	}

	// with two entries the head matches before the tail
	if v, _ := table.GetString("k"); v != "first" {
		t.Errorf("Expected first, got %s", v)
	}

	v, _ := table.DeleteString("k")
	if v != "first" {
		t.Errorf("Expected delete to remove first, got %s", v)
	}
	if v, _ := table.GetString("k"); v != "second" {
		t.Errorf("Expected second to surface, got %s", v)
	}
}

func TestTableKeyIsCopied(t *testing.T) {
	table := New[int](8, nil)
	key := []byte("abc")
	table.Put(key, 1)
	key[0] = 'z'

	if _, ok := table.Get([]byte("abc")); !ok {
		t.Error("Mutating the caller's key must not affect the table")
	}
}

func TestTableLoadGrowsPastOne(t *testing.T) {
	table := New[int](4, nil)
	for i := 0; i < 10; i++ {
		table.PutString(fmt.Sprint(i), i)
	}
	if table.Load() != 2.5 {
		t.Errorf("Expected load 2.5, got %.2f", table.Load())
	}
	table.DeleteString("0")
	if table.Load() != 9.0/4.0 {
		t.Errorf("Expected load 2.25, got %.2f", table.Load())
	}
}

func TestTableEachAndClear(t *testing.T) {
	table := New[int](8, nil)
	sum := 0
	for i := 1; i <= 5; i++ {
		table.PutString(fmt.Sprint(i), i)
	}
	table.Each(func(_ []byte, v int) { sum += v })
	if sum != 15 {
		t.Errorf("Expected sum 15, got %d", sum)
	}

	table.Clear()
	if table.Len() != 0 || table.Load() != 0 {
		t.Errorf("Expected empty table, got len=%d load=%.2f", table.Len(), table.Load())
	}
}

func TestDefaultHashRange(t *testing.T) {
	for _, buckets := range []int{1, 7, 128, 1024} {
		for _, key := range []string{"", "/", "/index.html", "/assets/js/jquery.min.js"} {
			h := DefaultHash([]byte(key), buckets)
			if h < 0 || h >= buckets {
				t.Errorf("DefaultHash(%q, %d) = %d out of range", key, buckets, h)
			}
		}
	}
}

func TestCustomHashOutOfRange(t *testing.T) {
	table := New[int](4, func([]byte, int) int { return -7 })
	table.PutString("a", 1)
	if v, ok := table.GetString("a"); !ok || v != 1 {
		t.Errorf("Expected 1, got %d (ok=%v)", v, ok)
	}
}

func BenchmarkTableGet(b *testing.B) {
	table := New[int](1024, nil)
	keys := make([][]byte, 1024)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("/assets/%d.css", i))
		table.Put(keys[i], i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		table.Get(keys[i%len(keys)])
	}
}
