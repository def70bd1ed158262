package tensor

import "sync"

// ParallelFor calls fn(i) for every i in [0, n) using at most workers
// goroutines. Work items must be independent. With workers <= 1 the calls run
// in order on the calling goroutine.
func ParallelFor(n, workers int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if workers <= 1 || n == 1 {
		for i := range n {
			fn(i)
		}
		return
	}
	if workers > n {
		workers = n
	}

	tasks := make(chan int, n)
	for i := range n {
		tasks <- i
	}
	close(tasks)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range tasks {
				fn(i)
			}
		}()
	}
	wg.Wait()
}
