package patchy

import (
	"fmt"
	"testing"
)

func TestRoundTripTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		base, other string
		blockSize   int
	}{
		{"aaa", "bbb", 2},
		{"abcd", "cdab", 2},
		{"abcd", "abcd", 2},
		{"abcd", "abc", 2},
		{"abc", "abcd", 2},
		{"a", "b", 2},
		{"ab", "abc", 2},
		{"abc", "ab", 2},
		{"", "", 4},
		{"abc", "", 4},
		{"", "abc", 4},
	}

	for _, c := range cases {
		c := c
		t.Run(fmt.Sprintf("%s->%s", c.base, c.other), func(t *testing.T) {
			t.Parallel()
			roundTrip(t, []byte(c.base), []byte(c.other), c.blockSize)
		})
	}
}

func TestRoundTripRandomish(t *testing.T) {
	t.Parallel()

	base := bytesRange(0, 4096)
	other := make([]byte, len(base))
	copy(other, base)
	// Shuffle a handful of regions around and mutate a few bytes so the
	// OTHER buffer has a mix of BASE-reproducible and payload-only
	// content.
	copy(other[0:512], base[2048:2560])
	copy(other[600:620], base[100:120])
	for i := 3000; i < 3010; i++ {
		other[i] = 0xFF
	}

	roundTrip(t, base, other, 64)
}

func TestEqualInputsProduceEmptyOther(t *testing.T) {
	t.Parallel()

	data := bytesRange(0, 300)
	blocks := ComputeBlocks(data, 16)
	cmds := Diff(data, blocks, 16)

	if !cmds.IsSynchronized() {
		t.Fatalf("identical BASE and OTHER must be fully synchronized, got %d other commands", len(cmds.Other))
	}

	patch := BuildPatch(data, cmds)
	if len(patch.Payload) != 0 {
		t.Fatalf("payload = %d bytes, want 0", len(patch.Payload))
	}

	got := ApplyPatch(data, patch)
	if string(got) != string(data) {
		t.Fatalf("ApplyPatch on equal inputs did not reproduce BASE")
	}
}

func roundTrip(t *testing.T, base, other []byte, blockSize int) {
	t.Helper()

	blocks := ComputeBlocks(other, blockSize)
	cmds := Diff(base, blocks, blockSize)
	patch := BuildPatch(other, cmds)
	got := ApplyPatch(base, patch)

	if string(got) != string(other) {
		t.Fatalf("round trip failed: got %q, want %q", got, other)
	}
}
