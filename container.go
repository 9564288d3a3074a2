package patchy

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/xerrors"
)

// ContainerMagic is the fixed 8-byte identifier every on-disk patch
// artifact starts with.
const ContainerMagic = "!patchy!"

// ContainerVersion is the only wire version this build understands.
const ContainerVersion uint32 = 1

// Container wraps a Patch with the bookkeeping needed for end-to-end
// verification: the magic/version pair and the strong hashes of BASE
// and OTHER computed when the patch was built.
type Container struct {
	BaseHash  StrongHash
	OtherHash StrongHash
	Patch     Patch
}

// Encode serializes c with the wire layout in spec §6 and compresses
// the result with zstd at level. Field order: magic, version,
// base_hash, other_hash, patch.payload, patch.base, patch.other,
// patch.other_size. All multi-byte integers are little-endian.
func Encode(c Container, level int) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(ContainerMagic)

	if err := binary.Write(&buf, binary.LittleEndian, ContainerVersion); err != nil {
		return nil, xerrors.Errorf("patchy: encoding version: %w", err)
	}
	buf.Write(c.BaseHash.Bytes())
	buf.Write(c.OtherHash.Bytes())

	writeBytes(&buf, c.Patch.Payload)
	writeCmds(&buf, c.Patch.Base)
	writeCmds(&buf, c.Patch.Other)

	if err := binary.Write(&buf, binary.LittleEndian, c.Patch.OtherSize); err != nil {
		return nil, xerrors.Errorf("patchy: encoding other_size: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdEncoderLevel(level)))
	if err != nil {
		return nil, xerrors.Errorf("patchy: creating zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(buf.Bytes(), nil), nil
}

// zstdEncoderLevel maps the classic zstd 1..22 level scale (the one
// spec.md's compression-level parameter is clamped to) onto the four
// speed/ratio buckets klauspost/compress/zstd actually exposes.
func zstdEncoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 3:
		return zstd.SpeedFastest
	case level <= 9:
		return zstd.SpeedDefault
	case level <= 15:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// Decode decompresses and deserializes a container previously produced
// by Encode, rejecting anything whose magic or version doesn't match.
func Decode(blob []byte) (Container, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Container{}, xerrors.Errorf("patchy: creating zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return Container{}, xerrors.Errorf("patchy: decompressing container: %w", err)
	}

	r := bytes.NewReader(raw)

	magic := make([]byte, len(ContainerMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return Container{}, xerrors.Errorf("patchy: reading magic: %w", err)
	}
	if string(magic) != ContainerMagic {
		return Container{}, xerrors.Errorf("patchy: %w", ErrBadMagic)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return Container{}, xerrors.Errorf("patchy: reading version: %w", err)
	}
	if version != ContainerVersion {
		return Container{}, xerrors.Errorf("patchy: %w (got %d, want %d)", ErrBadVersion, version, ContainerVersion)
	}

	var c Container
	if _, err := io.ReadFull(r, c.BaseHash[:]); err != nil {
		return Container{}, xerrors.Errorf("patchy: reading base_hash: %w", err)
	}
	if _, err := io.ReadFull(r, c.OtherHash[:]); err != nil {
		return Container{}, xerrors.Errorf("patchy: reading other_hash: %w", err)
	}

	payload, err := readBytes(r)
	if err != nil {
		return Container{}, xerrors.Errorf("patchy: reading payload: %w", err)
	}
	base, err := readCmds(r)
	if err != nil {
		return Container{}, xerrors.Errorf("patchy: reading base commands: %w", err)
	}
	other, err := readCmds(r)
	if err != nil {
		return Container{}, xerrors.Errorf("patchy: reading other commands: %w", err)
	}

	var otherSize uint64
	if err := binary.Read(r, binary.LittleEndian, &otherSize); err != nil {
		return Container{}, xerrors.Errorf("patchy: reading other_size: %w", err)
	}

	c.Patch = Patch{Payload: payload, Base: base, Other: other, OtherSize: otherSize}
	return c, nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	var length uint64 = uint64(len(b))
	binary.Write(buf, binary.LittleEndian, length) //nolint:errcheck // bytes.Buffer.Write never errors
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeCmds(buf *bytes.Buffer, cmds []CopyCmd) {
	var length uint64 = uint64(len(cmds))
	binary.Write(buf, binary.LittleEndian, length) //nolint:errcheck
	for _, c := range cmds {
		binary.Write(buf, binary.LittleEndian, c.Source) //nolint:errcheck
		binary.Write(buf, binary.LittleEndian, c.Target) //nolint:errcheck
		binary.Write(buf, binary.LittleEndian, c.Size)   //nolint:errcheck
	}
}

func readCmds(r *bytes.Reader) ([]CopyCmd, error) {
	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	cmds := make([]CopyCmd, length)
	for i := range cmds {
		if err := binary.Read(r, binary.LittleEndian, &cmds[i].Source); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &cmds[i].Target); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &cmds[i].Size); err != nil {
			return nil, err
		}
	}
	return cmds, nil
}
