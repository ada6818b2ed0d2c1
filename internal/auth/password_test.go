package auth

import "testing"

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Fatal("expected digest to verify against original plaintext")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Fatal("expected mismatched plaintext to fail verification")
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if first == second {
		t.Fatal("expected two digests of the same input to differ")
	}
	if !VerifyPassword(first, "hunter2hunter2") || !VerifyPassword(second, "hunter2hunter2") {
		t.Fatal("expected both digests to verify")
	}
}
