package distributed

// Comm is a handle on a collective-communication group. Every worker in a
// run holds exactly one Comm; collective calls block until all members of
// the group have joined the same operation.
//
// Rank 0 is the coordinator: the single worker responsible for shared
// artifact writes and aggregated logging.
type Comm interface {
	// Rank returns this worker's index in the group, in [0, Size).
	Rank() int

	// LocalRank returns this worker's index among the workers running on
	// the same host.
	LocalRank() int

	// Size returns the number of workers in the group.
	Size() int

	// Broadcast replaces data on every worker with the root worker's data.
	// All workers must pass slices of the same length.
	Broadcast(root int, data []float64) error

	// AllreduceMean replaces data on every worker with the element-wise
	// mean of all workers' data.
	AllreduceMean(data []float64) error
}

// SingleProcess is the trivial group of size one. Collectives are no-ops.
type SingleProcess struct{}

func (SingleProcess) Rank() int      { return 0 }
func (SingleProcess) LocalRank() int { return 0 }
func (SingleProcess) Size() int      { return 1 }

func (SingleProcess) Broadcast(root int, data []float64) error { return nil }

func (SingleProcess) AllreduceMean(data []float64) error { return nil }
