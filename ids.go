package h5ref

import "sync/atomic"

var lastID atomic.Int64

// nextID hands out process-unique positive handle IDs.
func nextID() int64 {
	return lastID.Add(1)
}
