package gateway

import (
	"strings"
	"testing"
)

func TestNewMerchantRefLength(t *testing.T) {
	for i := 0; i < 100; i++ {
		ref := NewMerchantRef()
		if len(ref) > 14 {
			t.Fatalf("reference %q exceeds 14 characters", ref)
		}
		if len(ref) < 8 {
			t.Fatalf("reference %q suspiciously short", ref)
		}
		if ref != strings.ToUpper(ref) {
			t.Fatalf("reference %q is not uppercase", ref)
		}
	}
}

func TestNewMerchantRefUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10_000)
	for i := 0; i < 10_000; i++ {
		ref := NewMerchantRef()
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate reference generated: %s", ref)
		}
		seen[ref] = struct{}{}
	}
}
