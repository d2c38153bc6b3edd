//go:build leftright_cachelinesize_64

package opt

// CacheLineSize_ is forced to 64 bytes via the leftright_cachelinesize_64 build tag.
const CacheLineSize_ = 64
