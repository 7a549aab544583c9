package expr

import "sync"

// Cache memoises Compile results keyed by the expression's source text
// (after trivial normalisation). Per spec.md §4.1 and §5, the lock is
// held only while compiling a not-yet-seen expression; once an entry is
// present, Get reads it from a sync.Map without taking the lock at
// all. An expression that fails to compile caches Data{} (its sentinel,
// recognised by Data.Invalid) so repeated evaluation of a known-bad
// condition is as cheap as a hit.
type Cache struct {
	compileLock sync.Mutex
	entries     sync.Map // string -> Data
}

// NewCache returns a ready-to-use, empty expression cache.
func NewCache() *Cache {
	return &Cache{}
}

func normalise(src string) string {
	// expression text is used verbatim as the cache key; the only
	// normalisation applied is trimming, so that "X" and " X" share an
	// entry without the parser needing to special-case surrounding
	// whitespace.
	start, end := 0, len(src)
	for start < end && isSpaceByte(src[start]) {
		start++
	}
	for end > start && isSpaceByte(src[end-1]) {
		end--
	}
	return src[start:end]
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Get returns the compiled form of src, compiling and caching it on
// first use. A compile failure is cached too (as the Data{} sentinel)
// and returned as (Data{}, err) so the caller can log the error once
// without having to track "have I already warned about this expression"
// itself.
func (c *Cache) Get(src string) (Data, error) {
	key := normalise(src)

	if v, ok := c.entries.Load(key); ok {
		entry := v.(cacheEntry)
		return entry.data, entry.err
	}

	c.compileLock.Lock()
	defer c.compileLock.Unlock()

	// another goroutine may have compiled this key while we waited for
	// the lock.
	if v, ok := c.entries.Load(key); ok {
		entry := v.(cacheEntry)
		return entry.data, entry.err
	}

	data, err := Compile(key)
	c.entries.Store(key, cacheEntry{data: data, err: err})
	return data, err
}

// Clear discards every cached compilation. Used when a ROM is unloaded
// and label addresses (and therefore what "valid" means) may change.
func (c *Cache) Clear() {
	c.entries = sync.Map{}
}

type cacheEntry struct {
	data Data
	err  error
}
