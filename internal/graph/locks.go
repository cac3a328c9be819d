package graph

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const lockStripes = 64

// keyedMutex serialises work per note id. Ids share one of a fixed set of
// stripes, so unrelated notes occasionally wait on each other but memory
// stays bounded.
type keyedMutex struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyedMutex) lock(id string) func() {
	m := &k.stripes[xxhash.Sum64String(id)%lockStripes]
	m.Lock()
	return m.Unlock
}
