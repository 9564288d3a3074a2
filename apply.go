package patchy

import "sync"

// ApplyPatch reconstructs OTHER from base and patch into a freshly
// allocated buffer. The result is independent of the order the two
// command lists are executed in, since their target ranges tile
// [0, OtherSize) without overlap; the two loops below therefore run
// concurrently.
func ApplyPatch(base []byte, patch Patch) []byte {
	result := make([]byte, patch.OtherSize)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for _, cmd := range patch.Base {
			copy(result[cmd.Target:cmd.Target+uint64(cmd.Size)], base[cmd.Source:cmd.Source+uint64(cmd.Size)])
		}
	}()

	go func() {
		defer wg.Done()
		for _, cmd := range patch.Other {
			copy(result[cmd.Target:cmd.Target+uint64(cmd.Size)], patch.Payload[cmd.Source:cmd.Source+uint64(cmd.Size)])
		}
	}()

	wg.Wait()

	return result
}
