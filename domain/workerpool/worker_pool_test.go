package workerpool_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsedex-labs/pqs/domain/workerpool"
)

func TestProcess(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32

	jobs := make([]workerpool.Job[int], 0, 20)
	for i := 0; i < 20; i++ {
		i := i
		jobs = append(jobs, workerpool.Job[int]{
			ID: string(rune('a' + i)),
			Task: func() (int, error) {
				current := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					observed := maxInFlight.Load()
					if current <= observed || maxInFlight.CompareAndSwap(observed, current) {
						break
					}
				}
				if i%5 == 0 {
					return 0, errors.New("boom")
				}
				return i * i, nil
			},
		})
	}

	results := workerpool.Process(jobs, 4)

	require.Len(t, results, 20)
	require.LessOrEqual(t, maxInFlight.Load(), int32(4))

	failures := 0
	for _, result := range results {
		if result.Err != nil {
			failures++
		}
	}
	require.Equal(t, 4, failures)
}

func TestProcess_Empty(t *testing.T) {
	require.Nil(t, workerpool.Process[int](nil, 4))
}
