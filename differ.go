package patchy

// Diff locates, inside base, every region reproducible from otherBlocks
// (the block list of OTHER, as produced by ComputeBlocks with the same
// blockSize) and returns the resulting PatchCommands.
//
// The scan slides a window of length at most blockSize over base,
// maintaining a WeakHash incrementally. A weak-hash hit against the set
// of weak hashes present in OTHER triggers a strong-hash confirmation;
// on confirmation the window's BASE offset is recorded (first writer
// wins) and the window jumps forward instead of continuing to slide, so
// matches never overlap in BASE. Otherwise the window slides by one
// byte, which is how unaligned matches are still found.
func Diff(base []byte, otherBlocks []Block, blockSize int) PatchCommands {
	weakPresent := make(map[uint32]struct{}, len(otherBlocks))
	otherByStrong := make(map[StrongHash]uint64, len(otherBlocks))
	for _, b := range otherBlocks {
		weakPresent[b.WeakHash] = struct{}{}
		if _, ok := otherByStrong[b.StrongHash]; !ok {
			otherByStrong[b.StrongHash] = b.Offset
		}
	}

	baseByStrong := make(map[StrongHash]uint64)

	var wb, we int
	var wh WeakHash

	for wb < len(base) {
		targetWin := blockSize
		if remain := len(base) - wb; remain < targetWin {
			targetWin = remain
		}

		for wh.Count() < targetWin {
			wh.Add(base[we])
			we++
		}

		if _, hit := weakPresent[wh.Sum32()]; hit {
			strong := ComputeStrongHash(base[wb:we])
			if _, ok := otherByStrong[strong]; ok {
				if _, already := baseByStrong[strong]; !already {
					baseByStrong[strong] = uint64(wb)
				}
				wb = we
				wh.Reset()
				continue
			}
		}

		wh.Sub(base[wb])
		wb++
	}

	cmds := PatchCommands{
		Base:  make([]CopyCmd, 0, len(otherBlocks)),
		Other: make([]CopyCmd, 0, len(otherBlocks)),
	}

	for _, ob := range otherBlocks {
		if src, ok := baseByStrong[ob.StrongHash]; ok {
			cmds.Base = append(cmds.Base, CopyCmd{Source: src, Target: ob.Offset, Size: ob.Size})
		} else {
			cmds.Other = append(cmds.Other, CopyCmd{Source: ob.Offset, Target: ob.Offset, Size: ob.Size})
		}
	}

	return cmds
}
