package workflow

import (
	"strings"
	"testing"
)

func TestPostingLockName(t *testing.T) {
	name := postingLockName("biz-1")
	if name != "posting:biz-1" {
		t.Fatalf("lock name = %q", name)
	}
	if postingLockName("biz-1") == postingLockName("biz-2") {
		t.Fatal("lock names must differ per business")
	}
	// MySQL rejects lock names over 64 characters
	long := postingLockName(strings.Repeat("a", 36))
	if len(long) > 64 {
		t.Fatalf("lock name too long: %d chars", len(long))
	}
}

func TestPostingLockReleaseSafety(t *testing.T) {
	var nilLock *BusinessPostingLock
	nilLock.Release() // must not panic

	lock := &BusinessPostingLock{lockName: "posting:biz-1"}
	lock.Release()
	lock.Release() // idempotent once the connection is gone
}
