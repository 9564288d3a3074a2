package patchy

import (
	"runtime"
	"sync"
)

// Block describes a fixed-size, aligned slice of some source buffer
// together with its precomputed hashes. Blocks are produced by
// ComputeBlocks and are immutable once built.
type Block struct {
	Offset     uint64
	Size       uint32
	WeakHash   uint32
	StrongHash StrongHash
}

// ComputeBlocks partitions input into consecutive blocks of blockSize
// bytes, the last one possibly short. An empty input yields an empty
// list. Block hashing is independent per block, so for large inputs the
// work is sharded across a small worker pool instead of run serially.
func ComputeBlocks(input []byte, blockSize int) []Block {
	if len(input) == 0 {
		return nil
	}

	numBlocks := (len(input) + blockSize - 1) / blockSize
	blocks := make([]Block, numBlocks)

	const shardThreshold = 64
	workers := 1
	if numBlocks >= shardThreshold {
		workers = numWorkers()
	}

	if workers <= 1 {
		for i := 0; i < numBlocks; i++ {
			blocks[i] = computeBlock(input, i, blockSize)
		}
		return blocks
	}

	var wg sync.WaitGroup
	chunk := (numBlocks + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= numBlocks {
			break
		}
		if end > numBlocks {
			end = numBlocks
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				blocks[i] = computeBlock(input, i, blockSize)
			}
		}(start, end)
	}
	wg.Wait()

	return blocks
}

func numWorkers() int {
	if n := runtime.GOMAXPROCS(0); n > 1 {
		return n
	}
	return 1
}

func computeBlock(input []byte, index, blockSize int) Block {
	begin := index * blockSize
	end := begin + blockSize
	if end > len(input) {
		end = len(input)
	}
	slice := input[begin:end]

	var wh WeakHash
	wh.Update(slice)

	return Block{
		Offset:     uint64(begin),
		Size:       uint32(end - begin),
		WeakHash:   wh.Sum32(),
		StrongHash: ComputeStrongHash(slice),
	}
}
