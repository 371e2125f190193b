package workerpool

import "sync"

// Job represents one unit of work to be run by the pool.
type Job[T any] struct {
	// ID correlates the result with the submitted job.
	ID string
	// Task executes the job.
	Task func() (T, error)
}

// JobResult represents the result of a job.
type JobResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process runs the given jobs with at most maxWorkers running concurrently and
// returns one result per job. Result order is not guaranteed.
func Process[T any](jobs []Job[T], maxWorkers int) []JobResult[T] {
	if len(jobs) == 0 {
		return nil
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	jobQueue := make(chan Job[T], len(jobs))
	resultQueue := make(chan JobResult[T], len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobQueue {
				result, err := job.Task()
				resultQueue <- JobResult[T]{ID: job.ID, Result: result, Err: err}
			}
		}()
	}

	for _, job := range jobs {
		jobQueue <- job
	}
	close(jobQueue)

	wg.Wait()
	close(resultQueue)

	results := make([]JobResult[T], 0, len(jobs))
	for result := range resultQueue {
		results = append(results, result)
	}
	return results
}
