package hic

import "github.com/hictk/hictk/internal/lru"

// Default byte budgets of the footer, block and normalization caches that
// every File opens with.
const (
	DefaultFooterCacheBytes = 8 << 20
	DefaultBlockCacheBytes  = 500 << 20
	DefaultNormCacheBytes   = 32 << 20
)

// blockCacheKey identifies one decoded block within a specific footer.
type blockCacheKey struct {
	footer  FooterKey
	blockID int64
}

// normCacheKey identifies one cached normalization vector.
type normCacheKey struct {
	chrom uint32
	unit  Unit
	res   uint32
	name  string
}

// normVector is a cached per-chromosome balancing vector.
type normVector struct {
	Values []float64
}

func (v normVector) ByteSize() int { return 32 + len(v.Values)*8 }

// caches bundles the three LRU caches a File keeps: decoded footers,
// decoded blocks, and normalization vectors. Separated from File so tests
// can construct caches with small budgets directly.
type caches struct {
	footers *lru.Cache[FooterKey, *Footer]
	blocks  *lru.Cache[blockCacheKey, *Block]
	norms   *lru.Cache[normCacheKey, normVector]
}

func newCaches(footerBytes, blockBytes, normBytes int) *caches {
	return &caches{
		footers: lru.New[FooterKey, *Footer](footerBytes),
		blocks:  lru.New[blockCacheKey, *Block](blockBytes),
		norms:   lru.New[normCacheKey, normVector](normBytes),
	}
}
