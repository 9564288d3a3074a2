package patchy

// CopyCmd describes a range copy: size bytes starting at Source in some
// source buffer land at Target in the destination buffer. Commands built
// by Diff and BuildPatch never have Size == 0; command-list optimization
// compacts in place without tombstone entries.
type CopyCmd struct {
	Source uint64
	Target uint64
	Size   uint32
}

// PatchCommands is the intermediate, pre-payload-relocation result of a
// diff: base commands copy directly out of BASE, other commands still
// address OTHER and must be relocated into a Patch's payload before the
// result is usable standalone.
type PatchCommands struct {
	Base  []CopyCmd
	Other []CopyCmd
}

// NeedBytesFromBase sums the size of all Base commands.
func (c *PatchCommands) NeedBytesFromBase() uint64 {
	return sumSizes(c.Base)
}

// NeedBytesFromOther sums the size of all Other commands.
func (c *PatchCommands) NeedBytesFromOther() uint64 {
	return sumSizes(c.Other)
}

// IsSynchronized reports whether OTHER can be reproduced from BASE
// without carrying any payload at all, i.e. every block of OTHER was
// found somewhere in BASE (not necessarily at the same offset).
func (c *PatchCommands) IsSynchronized() bool {
	return len(c.Other) == 0
}

func sumSizes(cmds []CopyCmd) uint64 {
	var total uint64
	for _, c := range cmds {
		total += uint64(c.Size)
	}
	return total
}
