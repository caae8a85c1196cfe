package main

import "testing"

func TestTokenBucketLimiterBurst(t *testing.T) {
	l := NewTokenBucketLimiter(1, 2)

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("burst denied")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("request over burst allowed")
	}
}

func TestTokenBucketLimiterKeysAreIndependent(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1)

	if !l.Allow("a") {
		t.Fatal("first key denied")
	}
	if l.Allow("a") {
		t.Fatal("exhausted key allowed")
	}
	if !l.Allow("b") {
		t.Fatal("fresh key denied")
	}
}
