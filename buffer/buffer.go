package buffer

import (
	"math"
	"sync"
)

// SmoothingBuffer holds the most recent raw samples of a signal oscillating around a
// DC offset and reduces them to a single magnitude that favours recent activity.
type SmoothingBuffer struct {
	position int // index of the newest sample
	size     int
	offset   int
	data     []int
	lock     sync.Mutex
}

// NewSmoothingBuffer returns a buffer of size samples, all set to offset.
func NewSmoothingBuffer(size int, offset int) *SmoothingBuffer {
	if size < 1 {
		size = 1
	}
	b := SmoothingBuffer{
		size:   size,
		offset: offset,
		data:   make([]int, size),
	}
	for i := range b.data {
		b.data[i] = offset
	}
	return &b
}

// Push stores raw as the newest sample, evicting the oldest.
func (b *SmoothingBuffer) Push(raw int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.position += 1
	if b.position == b.size {
		b.position = 0
	}
	b.data[b.position] = raw
}

// at returns the sample age steps back from the newest. Caller holds the lock.
func (b *SmoothingBuffer) at(age int) int {
	index := b.position - age
	if index < 0 {
		// reverse wrap
		index += b.size
	}
	return b.data[index]
}

// Smoothed weights each squared, offset corrected sample by (size-age)/size and
// returns the truncated square root of the sum. A silent buffer reads 0.
func (b *SmoothingBuffer) Smoothed() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	sum := 0.0
	for age := 0; age < b.size; age++ {
		x := float64(b.at(age) - b.offset)
		sum += x * x * (float64(b.size-age) / float64(b.size))
	}
	if sum == 0 {
		return 0
	}
	return int(math.Sqrt(sum))
}

// Samples returns a copy of the buffer, newest first.
func (b *SmoothingBuffer) Samples() []int {
	b.lock.Lock()
	defer b.lock.Unlock()
	out := make([]int, b.size)
	for age := range out {
		out[age] = b.at(age)
	}
	return out
}

func (b *SmoothingBuffer) Size() int {
	return b.size
}

func (b *SmoothingBuffer) GetLast() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.data[b.position]
}
