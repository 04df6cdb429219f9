package cache

import "testing"

func TestArtifactCacheGetPutRoundTrip(t *testing.T) {
	ac, err := NewArtifactCache(1<<20, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ac.Put("a", []byte("hello"))
	got, ok := ac.Get("a")
	if !ok || string(got.Bytes) != "hello" {
		t.Fatalf("expected to retrieve the stored artifact, got %v %v", got, ok)
	}
}

func TestArtifactCacheEvictsByByteBudget(t *testing.T) {
	ac, err := NewArtifactCache(10, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ac.Put("a", []byte("01234")) // 5 bytes
	ac.Put("b", []byte("56789")) // 5 bytes, total = 10, within budget
	if ac.Bytes() != 10 {
		t.Fatalf("expected 10 cached bytes, got %d", ac.Bytes())
	}
	ac.Put("c", []byte("xy")) // 2 more bytes should force eviction of "a"
	if ac.Bytes() > 10 {
		t.Fatalf("expected cache to stay within its byte budget, got %d bytes", ac.Bytes())
	}
	if _, ok := ac.Get("a"); ok {
		t.Fatalf("expected the oldest entry to have been evicted to make room")
	}
	if _, ok := ac.Get("c"); !ok {
		t.Fatalf("expected the newest entry to remain cached")
	}
}

func TestArtifactCacheOverwriteAdjustsByteCount(t *testing.T) {
	ac, err := NewArtifactCache(1<<20, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ac.Put("a", []byte("12345"))
	ac.Put("a", []byte("1"))
	if ac.Bytes() != 1 {
		t.Fatalf("expected overwriting a key to replace its byte contribution, got %d", ac.Bytes())
	}
	if ac.Len() != 1 {
		t.Fatalf("expected overwrite not to duplicate the entry, got len=%d", ac.Len())
	}
}
