package search

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Spawner runs detached work. Nothing waits on what it starts.
type Spawner interface {
	Go(fn func())
}

// GoSpawner starts a goroutine per task.
type GoSpawner struct{}

func (GoSpawner) Go(fn func()) { go fn() }

// Pool bounds how many tasks run at once.
type Pool struct {
	sem *semaphore.Weighted
}

func NewPool(size int) *Pool {
	return &Pool{sem: semaphore.NewWeighted(int64(max(size, 1)))}
}

func (p *Pool) Go(fn func()) {
	go func() {
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		fn()
	}()
}
