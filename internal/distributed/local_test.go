package distributed

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWorkers(t *testing.T, group *LocalGroup, fn func(c Comm) error) {
	t.Helper()

	var wg sync.WaitGroup
	errs := make([]error, group.Size())
	for rank := 0; rank < group.Size(); rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			errs[rank] = fn(group.Comm(rank))
		}(rank)
	}
	wg.Wait()

	for rank, err := range errs {
		require.NoError(t, err, "worker %d", rank)
	}
}

func TestLocalGroupBroadcast(t *testing.T) {
	group := NewLocalGroup(4)

	var mu sync.Mutex
	results := make(map[int][]float64)

	runWorkers(t, group, func(c Comm) error {
		data := []float64{float64(c.Rank()), float64(c.Rank() * 10)}
		if err := c.Broadcast(0, data); err != nil {
			return err
		}
		mu.Lock()
		results[c.Rank()] = data
		mu.Unlock()
		return nil
	})

	for rank := 0; rank < 4; rank++ {
		assert.Equal(t, []float64{0, 0}, results[rank], "rank %d", rank)
	}
}

func TestLocalGroupBroadcastNonZeroRoot(t *testing.T) {
	group := NewLocalGroup(3)

	var mu sync.Mutex
	results := make(map[int][]float64)

	runWorkers(t, group, func(c Comm) error {
		data := []float64{float64(c.Rank() + 1)}
		if err := c.Broadcast(2, data); err != nil {
			return err
		}
		mu.Lock()
		results[c.Rank()] = data
		mu.Unlock()
		return nil
	})

	for rank := 0; rank < 3; rank++ {
		assert.Equal(t, []float64{3}, results[rank], "rank %d", rank)
	}
}

func TestLocalGroupAllreduceMean(t *testing.T) {
	group := NewLocalGroup(4)

	var mu sync.Mutex
	results := make(map[int][]float64)

	runWorkers(t, group, func(c Comm) error {
		data := []float64{float64(c.Rank()), 8}
		if err := c.AllreduceMean(data); err != nil {
			return err
		}
		mu.Lock()
		results[c.Rank()] = data
		mu.Unlock()
		return nil
	})

	// mean(0,1,2,3) = 1.5 on every rank
	for rank := 0; rank < 4; rank++ {
		assert.Equal(t, []float64{1.5, 8}, results[rank], "rank %d", rank)
	}
}

func TestLocalGroupSequencedCollectives(t *testing.T) {
	group := NewLocalGroup(2)

	runWorkers(t, group, func(c Comm) error {
		for i := 0; i < 10; i++ {
			data := []float64{float64(c.Rank())}
			if err := c.AllreduceMean(data); err != nil {
				return err
			}
			if data[0] != 0.5 {
				t.Errorf("round %d rank %d: got %v", i, c.Rank(), data[0])
			}
		}
		return nil
	})
}

func TestLocalGroupLengthMismatch(t *testing.T) {
	group := NewLocalGroup(2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for rank := 0; rank < 2; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			data := make([]float64, rank+1)
			errs[rank] = group.Comm(rank).AllreduceMean(data)
		}(rank)
	}
	wg.Wait()

	assert.Error(t, errs[0])
	assert.Error(t, errs[1])
}

func TestSingleProcess(t *testing.T) {
	c := SingleProcess{}
	assert.Equal(t, 0, c.Rank())
	assert.Equal(t, 1, c.Size())

	data := []float64{1, 2, 3}
	require.NoError(t, c.Broadcast(0, data))
	require.NoError(t, c.AllreduceMean(data))
	assert.Equal(t, []float64{1, 2, 3}, data)
}
