package patchy

import (
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func decompressForTest(t *testing.T, blob []byte) []byte {
	t.Helper()
	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("zstd.NewReader: %v", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	return raw
}

func recompressForTest(t *testing.T, raw []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil)
}

func buildTestContainer(t *testing.T, base, other []byte, blockSize int) Container {
	t.Helper()

	blocks := ComputeBlocks(other, blockSize)
	cmds := Diff(base, blocks, blockSize)
	patch := BuildPatch(other, cmds)

	return Container{
		BaseHash:  ComputeStrongHash(base),
		OtherHash: ComputeStrongHash(other),
		Patch:     patch,
	}
}

func TestContainerRoundTrip(t *testing.T) {
	t.Parallel()

	base := []byte("the quick brown fox jumps over the lazy dog")
	other := []byte("the slow brown fox jumps over the sleepy dog")

	c := buildTestContainer(t, base, other, 8)

	blob, err := Encode(c, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if !got.BaseHash.Equal(c.BaseHash) || !got.OtherHash.Equal(c.OtherHash) {
		t.Fatalf("decoded hashes don't match: base=%v other=%v", got.BaseHash, got.OtherHash)
	}
	if got.Patch.OtherSize != c.Patch.OtherSize {
		t.Fatalf("decoded other_size = %d, want %d", got.Patch.OtherSize, c.Patch.OtherSize)
	}
	if string(got.Patch.Payload) != string(c.Patch.Payload) {
		t.Fatalf("decoded payload = %q, want %q", got.Patch.Payload, c.Patch.Payload)
	}

	reconstructed := ApplyPatch(base, got.Patch)
	if string(reconstructed) != string(other) {
		t.Fatalf("applying decoded patch gave %q, want %q", reconstructed, other)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	t.Parallel()

	c := buildTestContainer(t, []byte("abc"), []byte("abd"), 4)
	blob, err := Encode(c, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	raw := decompressForTest(t, blob)
	raw[0] ^= 0xFF
	tampered := recompressForTest(t, raw)

	if _, err := Decode(tampered); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("Decode with corrupt magic: err = %v, want ErrBadMagic", err)
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	t.Parallel()

	c := buildTestContainer(t, []byte("abc"), []byte("abd"), 4)
	blob, err := Encode(c, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	raw := decompressForTest(t, blob)
	// version is the 4 bytes right after the 8-byte magic.
	raw[len(ContainerMagic)] ^= 0xFF
	tampered := recompressForTest(t, raw)

	if _, err := Decode(tampered); !errors.Is(err, ErrBadVersion) {
		t.Fatalf("Decode with corrupt version: err = %v, want ErrBadVersion", err)
	}
}

func TestTamperedHashFailsVerification(t *testing.T) {
	t.Parallel()

	base := []byte("the quick brown fox")
	other := []byte("the slow brown fox")

	c := buildTestContainer(t, base, other, 4)
	c.OtherHash[0] ^= 0xFF // simulate on-disk corruption of the stored hash

	reconstructed := ApplyPatch(base, c.Patch)
	if ComputeStrongHash(reconstructed).Equal(c.OtherHash) {
		t.Fatalf("tampered OtherHash unexpectedly matched reconstructed output")
	}
}
