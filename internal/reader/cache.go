package reader

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// cache keeps recently read documents keyed by format and content hash. A nil *cache is
// valid and caches nothing.
type cache struct {
	docs *lru.Cache[string, Document]
}

func newCache(size int) (*cache, error) {
	docs, err := lru.New[string, Document](size)
	if err != nil {
		return nil, err
	}
	return &cache{docs: docs}, nil
}

func (c *cache) get(key string) (Document, bool) {
	if c == nil {
		return Document{}, false
	}
	doc, ok := c.docs.Get(key)
	if !ok {
		return Document{}, false
	}
	doc.Warnings = append([]string(nil), doc.Warnings...)
	return doc, true
}

func (c *cache) add(key string, doc Document) {
	if c == nil {
		return
	}
	c.docs.Add(key, doc)
}

func (c *cache) len() int {
	if c == nil {
		return 0
	}
	return c.docs.Len()
}
