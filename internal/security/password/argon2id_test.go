package password

import (
	"strings"
	"testing"
)

// Params chicos para no pagar 64MiB por test.
var testParams = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := Hash(testParams, "hunter22")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("bad PHC prefix: %q", phc)
	}
	if !Verify("hunter22", phc) {
		t.Fatalf("correct password should verify")
	}
	if Verify("hunter23", phc) {
		t.Fatalf("wrong password must not verify")
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	a, err := Hash(testParams, "hunter22")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := Hash(testParams, "hunter22")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password must differ (salt)")
	}
}

func TestHash_RejectsEmpty(t *testing.T) {
	if _, err := Hash(testParams, ""); err == nil {
		t.Fatalf("empty password must error")
	}
}

func TestVerify_RejectsMalformedPHC(t *testing.T) {
	for _, phc := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=18$m=8,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=19$garbage$c2FsdA$ZGs",
		"$argon2id$v=19$m=8,t=1,p=1$!!!$ZGs",
	} {
		if Verify("hunter22", phc) {
			t.Fatalf("phc %q must not verify", phc)
		}
	}
}
