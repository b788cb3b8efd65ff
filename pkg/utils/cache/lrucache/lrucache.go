package lrucache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/mitchellh/copystructure"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/utils/cache"
)

const DefaultCapacity = 32

type (
	Option[K comparable, V any] func(*config[K, V])

	config[K comparable, V any] struct {
		capacity   int
		expiration time.Duration // 0 means no expiry
		l          *log.Logger
	}
	entry[K comparable, V any] struct {
		key     K
		value   *V
		expires *time.Time
	}

	// lruCache is a bounded cache with least-recently-used eviction. Values
	// are deep-copied on Put and on Get, so neither the producer nor any
	// consumer can mutate cached state.
	lruCache[K comparable, V any] struct {
		mutex  sync.Mutex
		ll     *list.List
		items  map[K]*list.Element
		config *config[K, V]
	}
)

func WithCapacity[K comparable, V any](capacity int) Option[K, V] {
	return func(c *config[K, V]) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

func WithExpiration[K comparable, V any](expiration time.Duration) Option[K, V] {
	return func(c *config[K, V]) {
		c.expiration = expiration
	}
}

func WithLogger[K comparable, V any](arg *log.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		c.l = arg
	}
}

func New[K comparable, V any](opts ...Option[K, V]) cache.Cache[K, V] {
	c := &config[K, V]{
		capacity: DefaultCapacity,
		l:        log.Default().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &lruCache[K, V]{
		ll:     list.New(),
		items:  make(map[K]*list.Element),
		config: c,
	}
}

func (c *lruCache[K, V]) Get(ctx context.Context, key K) (*V, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	item := elem.Value.(*entry[K, V]) //nolint:errcheck // own list
	if item.expires != nil && item.expires.Before(time.Now()) {
		c.remove(elem)
		return nil, cache.ErrCacheMiss
	}
	c.ll.MoveToFront(elem)
	return deepCopy(item.value)
}

func (c *lruCache[K, V]) Put(ctx context.Context, key K, value *V) error {
	copied, err := deepCopy(value)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var expires *time.Time
	if c.config.expiration > 0 {
		at := time.Now().Add(c.config.expiration)
		expires = &at
	}
	if elem, ok := c.items[key]; ok {
		item := elem.Value.(*entry[K, V]) //nolint:errcheck // own list
		item.value = copied
		item.expires = expires
		c.ll.MoveToFront(elem)
		return nil
	}
	c.items[key] = c.ll.PushFront(&entry[K, V]{key: key, value: copied, expires: expires})
	for c.ll.Len() > c.config.capacity {
		oldest := c.ll.Back()
		c.config.l.Debug("evicting",
			log.Any("key", oldest.Value.(*entry[K, V]).key)) //nolint:errcheck // own list
		c.remove(oldest)
	}
	return nil
}

func (c *lruCache[K, V]) Invalidate(ctx context.Context, key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

func (c *lruCache[K, V]) InvalidateAll(ctx context.Context) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.ll = list.New()
	c.items = make(map[K]*list.Element)
}

func (c *lruCache[K, V]) remove(elem *list.Element) {
	c.ll.Remove(elem)
	delete(c.items, elem.Value.(*entry[K, V]).key) //nolint:errcheck // own list
}

func deepCopy[V any](value *V) (*V, error) {
	if value == nil {
		return nil, nil
	}
	copied, err := copystructure.Copy(*value)
	if err != nil {
		return nil, err
	}
	ret := copied.(V) //nolint:errcheck // copy preserves the type
	return &ret, nil
}
