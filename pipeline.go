package collide

import "sync"

// task fans work items out over workersCount goroutines in contiguous
// chunks. Each pair of the step is handed to exactly one worker, so its
// manifold and caches have a single writer. Blocks until every item has
// been processed.
func task[T any](workersCount int, data []T, fn func(data T)) {
	if workersCount < 1 {
		workersCount = 1
	}
	dataSize := len(data)
	if dataSize == 0 {
		return
	}
	chunkSize := (dataSize + workersCount - 1) / workersCount

	var wg sync.WaitGroup
	for start := 0; start < dataSize; start += chunkSize {
		end := min(start+chunkSize, dataSize)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(data[i])
			}
		}(start, end)
	}
	wg.Wait()
}
