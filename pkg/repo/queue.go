package repo

import "github.com/gritvcs/grit/pkg/object"

type commitQueueItem struct {
	hash      object.Hash
	timestamp int64
}

// commitMaxHeap orders commits newest-timestamp-first, breaking ties by
// ascending hash so heap order is deterministic.
type commitMaxHeap []commitQueueItem

func (h commitMaxHeap) Len() int { return len(h) }

func (h commitMaxHeap) Less(i, j int) bool {
	if h[i].timestamp == h[j].timestamp {
		return h[i].hash < h[j].hash
	}
	return h[i].timestamp > h[j].timestamp
}

func (h commitMaxHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *commitMaxHeap) Push(x any) {
	*h = append(*h, x.(commitQueueItem))
}

func (h *commitMaxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
