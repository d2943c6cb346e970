package workerpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i))
	}
	return out
}

func TestPartition_EvenSplit(t *testing.T) {
	batches := Partition(names(9), 3)
	assert.Len(t, batches, 3)
	for _, b := range batches {
		assert.Len(t, b, 3)
	}
}

func TestPartition_RemainderGoesToEarlyBatches(t *testing.T) {
	batches := Partition(names(10), 3)
	assert.Equal(t, []int{4, 3, 3}, lengths(batches))
}

func TestPartition_OmitsEmptyBatches(t *testing.T) {
	batches := Partition(names(2), 5)
	assert.Len(t, batches, 2)
	for _, b := range batches {
		assert.Len(t, b, 1)
	}
}

func TestPartition_NoFiles(t *testing.T) {
	batches := Partition(nil, 4)
	assert.Empty(t, batches)
}

func lengths(batches [][]string) []int {
	out := make([]int, len(batches))
	for i, b := range batches {
		out[i] = len(b)
	}
	return out
}
