package patchy

import "sort"

// Patch is the serialization-stable result of a diff: everything needed
// to reconstruct OTHER from BASE. Payload holds the OTHER bytes that
// BASE could not supply, concatenated in target order; Other commands
// address Payload instead of OTHER directly.
type Patch struct {
	Payload   []byte
	Base      []CopyCmd
	Other     []CopyCmd
	OtherSize uint64
}

// BuildPatch materializes the OTHER-sourced payload referenced by
// cmds.Other, rewrites those commands to address the payload instead of
// OTHER, clones the BASE-sourced commands, and merges physically
// adjacent commands on both lists.
func BuildPatch(other []byte, cmds PatchCommands) Patch {
	payload := make([]byte, 0, cmds.NeedBytesFromOther())
	relocated := make([]CopyCmd, len(cmds.Other))
	for i, cmd := range cmds.Other {
		relocated[i] = CopyCmd{
			Source: uint64(len(payload)),
			Target: cmd.Target,
			Size:   cmd.Size,
		}
		payload = append(payload, other[cmd.Source:cmd.Source+uint64(cmd.Size)]...)
	}

	base := make([]CopyCmd, len(cmds.Base))
	copy(base, cmds.Base)

	return Patch{
		Payload:   payload,
		Base:      optimizeCommands(base),
		Other:     optimizeCommands(relocated),
		OtherSize: uint64(len(other)),
	}
}

// optimizeCommands sorts cmds by Target and folds runs of commands whose
// source and target both advance contiguously into a single command,
// since such a run is equivalent to one longer copy. Running this twice
// on its own output is a no-op: a fully-folded, target-sorted list has
// no adjacent pair left to merge.
func optimizeCommands(cmds []CopyCmd) []CopyCmd {
	if len(cmds) == 0 {
		return cmds
	}

	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Target < cmds[j].Target })

	write := 0
	for read := 1; read < len(cmds); read++ {
		prev := &cmds[write]
		cur := cmds[read]
		if prev.Source+uint64(prev.Size) == cur.Source && prev.Target+uint64(prev.Size) == cur.Target {
			prev.Size += cur.Size
			continue
		}
		write++
		cmds[write] = cur
	}

	return cmds[:write+1]
}
