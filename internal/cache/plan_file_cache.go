package cache

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	errbuilder "github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/halcyonworks/agentroute"
)

// PlanFileCache persists execution plans to a JSON file so repeated queries
// survive restarts. Values are typed as plans, which is what makes the file
// round-trip possible.
type PlanFileCache struct {
	store    map[string]persistedPlan
	mutex    sync.Mutex
	ttl      time.Duration
	filePath string
	logger   Logger
}

type persistedPlan struct {
	Plan       *agentroute.ExecutionPlan `json:"plan"`
	Expiration int64                     `json:"expiration"`
}

// NewPlanFileCache creates a persistent plan cache with a default TTL and
// file path.
func NewPlanFileCache(defaultTTL time.Duration, filePath string, logger Logger) *PlanFileCache {
	c := &PlanFileCache{
		store:    make(map[string]persistedPlan),
		ttl:      defaultTTL,
		filePath: filePath,
		logger:   logger,
	}
	c.loadFromFile()
	return c
}

// loadFromFile loads cached plans from disk. A missing or unreadable file
// just means an empty cache.
func (c *PlanFileCache) loadFromFile() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	file, err := os.Open(c.filePath)
	if err != nil {
		return
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&c.store); err != nil && c.logger != nil {
		c.logger.Error("Plan cache file unreadable, starting empty", map[string]interface{}{
			"path":  c.filePath,
			"error": err.Error(),
		})
	}
}

// saveToFile writes the store to disk. Caller must hold the mutex.
func (c *PlanFileCache) saveToFile() {
	file, err := os.Create(c.filePath)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("Plan cache save failed", map[string]interface{}{
				"path":  c.filePath,
				"error": err.Error(),
			})
		}
		return
	}
	defer file.Close()

	_ = json.NewEncoder(file).Encode(c.store)
}

// Get retrieves a cached plan.
func (c *PlanFileCache) Get(ctx context.Context, key string) (interface{}, error) {
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, found := c.store[key]
	if !found {
		return nil, errbuilder.NotFoundErr(errbuilder.GenericErr("cache item not found", nil))
	}

	if time.Now().UnixNano() > item.Expiration {
		delete(c.store, key)
		return nil, errbuilder.NotFoundErr(errbuilder.GenericErr("cache item expired", nil))
	}

	return item.Plan, nil
}

// Set stores a plan and persists the cache. Non-plan values are rejected.
func (c *PlanFileCache) Set(ctx context.Context, key string, value interface{}) error {
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		return err
	}

	plan, ok := value.(*agentroute.ExecutionPlan)
	if !ok {
		return errbuilder.GenericErr("plan file cache only stores execution plans", nil)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.store[key] = persistedPlan{
		Plan:       plan,
		Expiration: time.Now().Add(c.ttl).UnixNano(),
	}
	c.saveToFile()

	if c.logger != nil {
		c.logger.Info("Plan cached", map[string]interface{}{"key": key})
	}
	return nil
}
