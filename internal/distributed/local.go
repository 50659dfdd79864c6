package distributed

import (
	"fmt"
	"sync"
)

const (
	opBroadcast = "broadcast"
	opAllreduce = "allreduce"
)

// collective is a single rendezvous point. The last worker to arrive
// computes the result and releases the others.
type collective struct {
	kind    string
	root    int
	n       int
	arrived int
	sum     []float64
	rootBuf []float64
	err     error
	done    chan struct{}
}

// LocalGroup is an in-process collective group: every worker is a goroutine
// holding one Comm handle obtained from Comm(rank).
//
// Collectives are matched by call order: the i-th collective call on one
// rank rendezvouses with the i-th call on every other rank. A worker that
// never makes its call stalls the whole group indefinitely; no timeout is
// applied, matching the behaviour of real collective groups.
type LocalGroup struct {
	size int

	mu  sync.Mutex
	ops map[uint64]*collective
}

// NewLocalGroup creates an in-process group of the given size.
func NewLocalGroup(size int) *LocalGroup {
	if size < 1 {
		size = 1
	}
	return &LocalGroup{
		size: size,
		ops:  make(map[uint64]*collective),
	}
}

// Size returns the number of workers in the group.
func (g *LocalGroup) Size() int { return g.size }

// Comm returns the communication handle for the given rank. Each rank's
// handle must be used by a single goroutine.
func (g *LocalGroup) Comm(rank int) Comm {
	return &localComm{group: g, rank: rank}
}

func (g *LocalGroup) join(seq uint64, kind string, root int, data []float64) error {
	g.mu.Lock()
	op, ok := g.ops[seq]
	if !ok {
		op = &collective{
			kind: kind,
			root: root,
			n:    len(data),
			sum:  make([]float64, len(data)),
			done: make(chan struct{}),
		}
		g.ops[seq] = op
	}

	if op.err == nil {
		switch {
		case op.kind != kind:
			op.err = fmt.Errorf("collective mismatch: %s joined %s", kind, op.kind)
		case op.n != len(data):
			op.err = fmt.Errorf("collective length mismatch: %d != %d", len(data), op.n)
		case kind == opBroadcast && op.root != root:
			op.err = fmt.Errorf("broadcast root mismatch: %d != %d", root, op.root)
		}
	}

	if op.err == nil {
		for i, v := range data {
			op.sum[i] += v
		}
	}

	op.arrived++
	if op.arrived == g.size {
		if op.err == nil && kind == opAllreduce {
			for i := range op.sum {
				op.sum[i] /= float64(g.size)
			}
		}
		delete(g.ops, seq)
		g.mu.Unlock()
		close(op.done)
	} else {
		g.mu.Unlock()
		<-op.done
	}

	if op.err != nil {
		return op.err
	}

	switch kind {
	case opBroadcast:
		copy(data, op.rootBuf)
	case opAllreduce:
		copy(data, op.sum)
	}
	return nil
}

type localComm struct {
	group *LocalGroup
	rank  int
	seq   uint64
}

func (c *localComm) Rank() int      { return c.rank }
func (c *localComm) LocalRank() int { return c.rank }
func (c *localComm) Size() int      { return c.group.size }

func (c *localComm) Broadcast(root int, data []float64) error {
	seq := c.seq
	c.seq++

	if c.rank == root {
		buf := make([]float64, len(data))
		copy(buf, data)
		c.group.mu.Lock()
		op, ok := c.group.ops[seq]
		if !ok {
			op = &collective{
				kind: opBroadcast,
				root: root,
				n:    len(data),
				sum:  make([]float64, len(data)),
				done: make(chan struct{}),
			}
			c.group.ops[seq] = op
		}
		op.rootBuf = buf
		c.group.mu.Unlock()
	}

	return c.group.join(seq, opBroadcast, root, data)
}

func (c *localComm) AllreduceMean(data []float64) error {
	seq := c.seq
	c.seq++
	return c.group.join(seq, opAllreduce, 0, data)
}
