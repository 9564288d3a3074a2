// Command patchy computes and applies binary patches between two
// arbitrary byte sequences using a content-defined-block delta engine.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/edsrzf/mmap-go"
	getopt "github.com/pborman/getopt/v2"
	"github.com/pborman/options"
	"golang.org/x/xerrors"

	"github.com/kayru/patchy"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: patchy <hash|diff|patch> [flags] ...")
	}

	subcommand := os.Args[1]
	os.Args = append(os.Args[:1], os.Args[2:]...)

	var err error
	switch subcommand {
	case "hash":
		err = runHash()
	case "diff":
		err = runDiff()
	case "patch":
		err = runPatch()
	default:
		log.Fatalf("unknown subcommand %q: want hash, diff, or patch", subcommand)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "patchy %s: %v\n", subcommand, err)
		os.Exit(1)
	}
}

func mapFile(name string) (mmap.MMap, *os.File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, xerrors.Errorf("can't open %q: %w", name, err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, nil, xerrors.Errorf("can't memory map %q: %w", name, err)
	}
	return m, f, nil
}

func closeMapped(m mmap.MMap, f *os.File) {
	m.Unmap()
	f.Close()
}

func runHash() error {
	opts := &struct {
		Help options.Help `getopt:"-h --help Display help"`
	}{}
	options.RegisterAndParse(opts)
	args := getopt.Args()
	if len(args) != 1 {
		return xerrors.New("expected exactly one INPUT argument")
	}

	input := args[0]
	data, f, err := mapFile(input)
	if err != nil {
		return err
	}
	defer closeMapped(data, f)

	fmt.Printf("File size %s (%d bytes)\n", humanize.Bytes(uint64(len(data))), len(data))

	timeStrong := time.Now()
	strong := patchy.ComputeStrongHash(data)
	durationStrong := time.Since(timeStrong)
	printThroughput("strong hash", len(data), durationStrong)
	fmt.Printf("Hash strong: %x\n", strong.Bytes())

	timeWeak := time.Now()
	var weak patchy.WeakHash
	weak.Update(data)
	durationWeak := time.Since(timeWeak)
	printThroughput("weak hash", len(data), durationWeak)
	fmt.Printf("Hash weak: %d\n", weak.Sum32())

	blockSize := patchy.NewParams().BlockSize()
	timeBlocks := time.Now()
	blocks := patchy.ComputeBlocks(data, blockSize)
	durationBlocks := time.Since(timeBlocks)
	printThroughput("block computation", len(data), durationBlocks)
	fmt.Printf("Blocks: %d (block size %d)\n", len(blocks), blockSize)

	fmt.Printf("Hash of blocks: %x\n", hashBlockList(blocks))

	return nil
}

// hashBlockList folds every block's (offset, size, weak_hash,
// strong_hash) tuple, in order, into a single strong hash. This gives
// an operator a cheap way to compare two block lists without diffing
// them field by field.
func hashBlockList(blocks []patchy.Block) patchy.StrongHash {
	buf := make([]byte, 0, len(blocks)*(8+4+4+patchy.StrongHashSize))
	for _, b := range blocks {
		var tmp [16]byte
		putUint64(tmp[0:8], b.Offset)
		putUint32(tmp[8:12], b.Size)
		putUint32(tmp[12:16], b.WeakHash)
		buf = append(buf, tmp[:]...)
		buf = append(buf, b.StrongHash.Bytes()...)
	}
	return patchy.ComputeStrongHash(buf)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putUint32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func runDiff() error {
	opts := &struct {
		BlockSizeLog2    int          `getopt:"-b --block  Patch block size as log2(bytes) [6..24], default 11 (2048 bytes)"`
		CompressionLevel int          `getopt:"-l --level  Compression level [1..22], default 15"`
		Help             options.Help `getopt:"-h --help   Display help"`
	}{
		BlockSizeLog2:    patchy.DefaultBlockSizeLog2,
		CompressionLevel: patchy.DefaultCompressionLevel,
	}
	options.RegisterAndParse(opts)
	args := getopt.Args()
	if len(args) < 2 || len(args) > 3 {
		return xerrors.New("expected BASE OTHER [PATCH]")
	}
	baseName, otherName := args[0], args[1]
	var patchName string
	if len(args) == 3 {
		patchName = args[2]
	}

	params := patchy.Params{BlockSizeLog2: opts.BlockSizeLog2, CompressionLevel: opts.CompressionLevel}
	for _, w := range params.Clamp() {
		fmt.Println(w)
	}

	base, baseFile, err := mapFile(baseName)
	if err != nil {
		return xerrors.Errorf("can't open BASE input file: %w", err)
	}
	defer closeMapped(base, baseFile)
	fmt.Printf("Base size: %s (%d bytes)\n", humanize.Bytes(uint64(len(base))), len(base))

	other, otherFile, err := mapFile(otherName)
	if err != nil {
		return xerrors.Errorf("can't open OTHER input file: %w", err)
	}
	defer closeMapped(other, otherFile)
	fmt.Printf("Other size: %s (%d bytes)\n", humanize.Bytes(uint64(len(other))), len(other))

	blockSize := params.BlockSize()
	fmt.Printf("Using block size: %d\n", blockSize)

	fmt.Printf("Computing block hashes for %q\n", otherName)
	otherBlocks := patchy.ComputeBlocks(other, blockSize)

	fmt.Println("Computing diff")
	cmds := patchy.Diff(base, otherBlocks, blockSize)

	aligned := cmds.IsSynchronized() && len(cmds.Base) == len(otherBlocks) && len(base) == len(other)
	for _, c := range cmds.Base {
		if c.Source != c.Target {
			aligned = false
			break
		}
	}
	if aligned {
		fmt.Println("Patch is not required")
		return nil
	}

	fmt.Printf("Need from BASE: %s (%d blocks), from OTHER: %s (%d blocks)\n",
		humanize.Bytes(cmds.NeedBytesFromBase()), len(cmds.Base),
		humanize.Bytes(cmds.NeedBytesFromOther()), len(cmds.Other))

	patch := patchy.BuildPatch(other, cmds)
	fmt.Printf("Patch commands: %d\n", len(patch.Base)+len(patch.Other))

	fmt.Println("Verifying patch")
	patchedBase := patchy.ApplyPatch(base, patch)
	otherHash := patchy.ComputeStrongHash(other)
	patchedBaseHash := patchy.ComputeStrongHash(patchedBase)
	if !otherHash.Equal(patchedBaseHash) {
		return xerrors.Errorf("self-check after building patch: %w", patchy.ErrVerificationMismatch)
	}

	container := patchy.Container{
		BaseHash:  patchy.ComputeStrongHash(base),
		OtherHash: otherHash,
		Patch:     patch,
	}

	fmt.Printf("Compressing patch (zstd level %d)\n", params.CompressionLevel)
	blob, err := patchy.Encode(container, params.CompressionLevel)
	if err != nil {
		return xerrors.Errorf("serializing patch: %w", err)
	}
	fmt.Printf("Compressed size: %s\n", humanize.Bytes(uint64(len(blob))))

	if patchName == "" {
		return nil
	}

	fmt.Printf("Writing patch to %q\n", patchName)
	if err := os.WriteFile(patchName, blob, 0o644); err != nil {
		return xerrors.Errorf("can't write PATCH output file: %w", err)
	}

	return nil
}

func runPatch() error {
	opts := &struct {
		Help options.Help `getopt:"-h --help Display help"`
	}{}
	options.RegisterAndParse(opts)
	args := getopt.Args()
	if len(args) < 2 || len(args) > 3 {
		return xerrors.New("expected BASE PATCH [OUTPUT]")
	}
	baseName, patchName := args[0], args[1]
	var outputName string
	if len(args) == 3 {
		outputName = args[2]
	}

	base, baseFile, err := mapFile(baseName)
	if err != nil {
		return xerrors.Errorf("can't open BASE input file: %w", err)
	}
	defer closeMapped(base, baseFile)

	blob, err := os.ReadFile(patchName)
	if err != nil {
		return xerrors.Errorf("can't read PATCH file: %w", err)
	}

	container, err := patchy.Decode(blob)
	if err != nil {
		return xerrors.Errorf("decoding patch: %w", err)
	}

	baseHash := patchy.ComputeStrongHash(base)
	if !baseHash.Equal(container.BaseHash) {
		return xerrors.Errorf("BASE does not match patch: %w", patchy.ErrVerificationMismatch)
	}

	fmt.Println("Applying patch")
	result := patchy.ApplyPatch(base, container.Patch)

	resultHash := patchy.ComputeStrongHash(result)
	if !resultHash.Equal(container.OtherHash) {
		return xerrors.Errorf("reconstructed output does not match expected hash: %w", patchy.ErrVerificationMismatch)
	}
	fmt.Printf("Verified: reconstructed %s\n", humanize.Bytes(uint64(len(result))))

	if outputName == "" {
		return nil
	}

	if err := os.WriteFile(outputName, result, 0o644); err != nil {
		return xerrors.Errorf("can't write OUTPUT file: %w", err)
	}
	fmt.Printf("Wrote %q\n", outputName)

	return nil
}

func printThroughput(label string, n int, d time.Duration) {
	mbPerSec := (float64(n) / (1 << 20)) / d.Seconds()
	fmt.Printf("Finished %s in %s, %.2f MB/sec\n", label, d, mbPerSec)
}
