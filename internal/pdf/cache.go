package pdf

import (
	"sync"
)

// layoutCache is a thread-safe least recently used cache of page layouts.
type layoutCache struct {
	mutex    sync.Mutex
	capacity int
	items    map[int]*cacheNode
	head     *cacheNode // most recently used
	tail     *cacheNode // least recently used
	hits     int64
	misses   int64
}

type cacheNode struct {
	page   int
	layout *TextLayout
	prev   *cacheNode
	next   *cacheNode
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Size     int   `json:"size"`
	Capacity int   `json:"capacity"`
}

const defaultCacheCapacity = 32

func newLayoutCache(capacity int) *layoutCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}

	c := &layoutCache{
		capacity: capacity,
		items:    make(map[int]*cacheNode),
		head:     &cacheNode{},
		tail:     &cacheNode{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

func (c *layoutCache) get(page int) (*TextLayout, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.items[page]; ok {
		c.moveToFront(node)
		c.hits++
		return node.layout, true
	}
	c.misses++
	return nil, false
}

func (c *layoutCache) put(page int, layout *TextLayout) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.items[page]; ok {
		node.layout = layout
		c.moveToFront(node)
		return
	}

	node := &cacheNode{page: page, layout: layout}
	c.addToFront(node)
	c.items[page] = node

	if len(c.items) > c.capacity {
		lru := c.tail.prev
		c.removeNode(lru)
		delete(c.items, lru.page)
	}
}

func (c *layoutCache) clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[int]*cacheNode)
	c.head.next = c.tail
	c.tail.prev = c.head
}

func (c *layoutCache) stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Size: len(c.items), Capacity: c.capacity}
}

func (c *layoutCache) addToFront(node *cacheNode) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *layoutCache) removeNode(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (c *layoutCache) moveToFront(node *cacheNode) {
	c.removeNode(node)
	c.addToFront(node)
}
