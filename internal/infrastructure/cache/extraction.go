// Package cache memoizes field extraction for repeated document text.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/core/ports"
)

// ExtractionCache wraps a FieldExtractor. Extraction is deterministic in
// (type, text), so cached documents are interchangeable with fresh ones.
type ExtractionCache struct {
	next  ports.FieldExtractor
	cache *gocache.Cache
}

func NewExtractionCache(next ports.FieldExtractor, ttl time.Duration) *ExtractionCache {
	return &ExtractionCache{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *ExtractionCache) Extract(docType domain.DocumentType, text string) domain.ExtractedDocument {
	key := cacheKey(docType, text)
	if val, found := c.cache.Get(key); found {
		return clone(val.(domain.ExtractedDocument))
	}
	doc := c.next.Extract(docType, text)
	c.cache.SetDefault(key, clone(doc))
	return doc
}

func (c *ExtractionCache) Len() int {
	return c.cache.ItemCount()
}

func cacheKey(docType domain.DocumentType, text string) string {
	sum := sha256.Sum256([]byte(string(docType) + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func clone(doc domain.ExtractedDocument) domain.ExtractedDocument {
	doc.Fields = maps.Clone(doc.Fields)
	return doc
}
