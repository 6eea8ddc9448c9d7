package optimize

import (
	"testing"
)

func TestBytePool(t *testing.T) {
	pool := NewBytePool(1024)

	// Get buffer
	buf := pool.Get()
	if len(buf) != 1024 {
		t.Errorf("expected buffer size 1024, got %d", len(buf))
	}

	// Put back a resliced buffer
	pool.Put(buf[:10])

	// Get again (full length restored)
	buf2 := pool.Get()
	if len(buf2) != 1024 {
		t.Errorf("expected buffer size 1024, got %d", len(buf2))
	}
}

func TestBytePool_RejectsSmallBuffers(t *testing.T) {
	pool := NewBytePool(64)
	pool.Put(make([]byte, 8))

	for i := 0; i < 4; i++ {
		if got := len(pool.Get()); got != 64 {
			t.Fatalf("expected 64 byte buffer, got %d", got)
		}
	}
	if pool.Size() != 64 {
		t.Errorf("Size() = %d, want 64", pool.Size())
	}
}
