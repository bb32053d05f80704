package httpmiddleware

import (
	"testing"
)

func TestTokenBucketExhaustion(t *testing.T) {
	l := NewSimpleTokenBucket(3, 3)
	for i := 0; i < 3; i++ {
		if !l.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.allow("1.2.3.4") {
		t.Error("request over capacity should be rejected")
	}
}

func TestTokenBucketIsolatesClients(t *testing.T) {
	l := NewSimpleTokenBucket(1, 1)
	if !l.allow("1.1.1.1") {
		t.Fatal("first client should be allowed")
	}
	if !l.allow("2.2.2.2") {
		t.Error("second client has its own bucket")
	}
	if l.allow("1.1.1.1") {
		t.Error("first client is out of tokens")
	}
}
