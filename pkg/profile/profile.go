package profile

// Profile is a collection of cache settings for the object storages.
type Profile struct {
	Name   string  `koanf:"name"`
	Caches *Caches `koanf:"caches"`
}

type Caches struct {
	Children   *CacheOpts `koanf:"children"`
	Milestones *CacheOpts `koanf:"milestones"`
	Blocks     *CacheOpts `koanf:"blocks"`
}

type CacheOpts struct {
	CacheTime                  string             `koanf:"cacheTime"`
	ReleaseExecutorWorkerCount int                `koanf:"releaseExecutorWorkerCount"`
	LeakDetectionOptions       *LeakDetectionOpts `koanf:"leakDetection"`
}

type LeakDetectionOpts struct {
	Enabled               bool   `koanf:"enabled"`
	MaxConsumersPerObject int    `koanf:"maxConsumersPerObject"`
	MaxConsumerHoldTime   string `koanf:"maxConsumerHoldTime"`
}
