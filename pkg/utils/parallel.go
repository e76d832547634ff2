package utils

import "sync"

// ParallelMap 并发处理输入切片，结果与输入下标一一对应（保持顺序）。
// workers <= 1 或输入过短时退化为顺序处理，避免无意义的 goroutine 开销。
func ParallelMap[T any, R any](items []T, workers int, fn func(T) R) []R {
	if len(items) == 0 {
		return nil
	}
	results := make([]R, len(items))

	if workers <= 1 || len(items) == 1 {
		for i, item := range items {
			results[i] = fn(item)
		}
		return results
	}
	if workers > len(items) {
		workers = len(items)
	}

	var wg sync.WaitGroup
	jobs := make(chan int)

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = fn(items[i])
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
