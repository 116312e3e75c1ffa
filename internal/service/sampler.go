package service

import "math/rand/v2"

// Sampler draws n distinct ids from ids, uniformly and without replacement.
type Sampler interface {
	Sample(ids []int64, n int) []int64
}

// RandomSampler samples with math/rand/v2.
type RandomSampler struct{}

// Sample implements Sampler with a partial Fisher–Yates shuffle.
func (RandomSampler) Sample(ids []int64, n int) []int64 {
	if n > len(ids) {
		n = len(ids)
	}
	pool := append([]int64(nil), ids...)
	for i := 0; i < n; i++ {
		j := i + rand.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
