// Package pool provides a size-stratified scratch-buffer pool for the
// .hic reader's decompress/decode path (hic.ReadBlock, File.footer,
// readFloatVector). Block bodies are read and zlib-inflated, footer
// bodies and normalization vectors are read and decoded, once per call;
// a pooled buffer avoids a fresh allocation on every block fetched out
// of a selector's hot loop.
//
// Sizes seen in practice range from a few hundred bytes (small footer
// bodies, short normalization vectors) up to a handful of megabytes
// (dense blocks at coarse resolutions); minBucketLog/maxBucketLog bound
// the stratification to that range rather than bgzf's full 0..62, and
// anything requesting more than 1<<maxBucketLog falls back to a plain
// allocation that PutBuffer discards instead of pooling.
package pool

import (
	"math/bits"
	"sync"
)

const (
	minBucketLog = 9  // 512 B
	maxBucketLog = 24 // 16 MiB
	numBuckets   = maxBucketLog - minBucketLog + 1
)

var bucket [numBuckets]sync.Pool

func init() {
	for i := range bucket {
		l := 1 << uint(minBucketLog+i)
		bucket[i].New = func() interface{} {
			return make([]byte, l)
		}
	}
}

// GetBuffer returns a []byte of length size, reused from the bucket
// sized to hold it when size falls within the pooled range.
func GetBuffer(size int) []byte {
	if size <= 0 {
		return nil
	}
	idx := bucketFor(size)
	if idx < 0 {
		return make([]byte, size)
	}
	b := bucket[idx].Get().([]byte)
	return b[:size]
}

// PutBuffer returns buf to its size bucket for reuse. Buffers outside
// the pooled range are dropped.
func PutBuffer(buf []byte) {
	if buf == nil {
		return
	}
	idx := bucketFor(cap(buf))
	if idx < 0 {
		return
	}
	bucket[idx].Put(buf[:0])
}

// bucketFor returns the index of the smallest bucket whose capacity
// covers size, or -1 if size exceeds the pooled range.
func bucketFor(size int) int {
	log := bits.Len(uint(size - 1))
	if log < minBucketLog {
		log = minBucketLog
	}
	if log > maxBucketLog {
		return -1
	}
	return log - minBucketLog
}
