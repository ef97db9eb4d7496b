package store

import "github.com/ebgpd/ebgpd/attribute"

// AttributeCache maps an attribute code and its packed bytes back to
// the already-decoded instance that produced them, so repeated
// decodes of the same attribute value (e.g. the same COMMUNITIES set
// attached to thousands of routes from one peer) share a single
// allocation instead of each UPDATE building its own.
type AttributeCache struct {
	byCode map[attribute.Code]map[string]attribute.Attribute
}

func NewAttributeCache() *AttributeCache {
	return &AttributeCache{byCode: map[attribute.Code]map[string]attribute.Attribute{}}
}

// Intern returns the cached attribute for code/bytes if one has been
// seen before, otherwise calls build, caches, and returns its result.
func (c *AttributeCache) Intern(code attribute.Code, bytes []byte, build func() attribute.Attribute) attribute.Attribute {
	m, ok := c.byCode[code]
	if !ok {
		m = map[string]attribute.Attribute{}
		c.byCode[code] = m
	}
	key := string(bytes)
	if a, ok := m[key]; ok {
		return a
	}
	a := build()
	m[key] = a
	return a
}

// Len returns the number of distinct (code, bytes) pairs cached across
// every attribute code.
func (c *AttributeCache) Len() int {
	n := 0
	for _, m := range c.byCode {
		n += len(m)
	}
	return n
}
