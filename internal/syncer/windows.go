package syncer

import "fmt"

// Window is an inclusive block-number range processed in one batch.
type Window struct {
	From uint64
	To   uint64
}

// SplitWindows splits an inclusive block range into windows of at most
// batchSize blocks.
func SplitWindows(from, to, batchSize uint64) ([]Window, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	windows := make([]Window, 0)
	start := from
	for start <= to {
		end := to
		if remaining := to - start + 1; remaining > batchSize {
			end = start + batchSize - 1
		}
		windows = append(windows, Window{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return windows, nil
}
