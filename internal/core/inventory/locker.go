package inventory

import (
	"sort"
	"sync"
)

// keyedLocker は商品 id ごとの排他ロックです。
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[string]*lockEntry)}
}

// lock は ids を重複除去・昇順に並べてから順にロックし、解放関数を返します。
func (k *keyedLocker) lock(ids []string) func() {
	keys := uniqueSorted(ids)

	entries := make([]*lockEntry, 0, len(keys))
	for _, key := range keys {
		k.mu.Lock()
		entry, ok := k.locks[key]
		if !ok {
			entry = &lockEntry{}
			k.locks[key] = entry
		}
		entry.refs++
		k.mu.Unlock()

		entry.mu.Lock()
		entries = append(entries, entry)
	}

	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()

			k.mu.Lock()
			entries[i].refs--
			if entries[i].refs == 0 {
				delete(k.locks, keys[i])
			}
			k.mu.Unlock()
		}
	}
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
