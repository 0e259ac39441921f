package zoctree

// Options contains configuration options for the octree.
type Options struct {
	// LeafCapacity is the maximum number of entries a leaf holds before it
	// is split. Must be > 0. A leaf at MaxDepth is allowed to exceed it:
	// the depth bound takes precedence over the capacity bound.
	LeafCapacity int

	// MaxDepth bounds the tree depth. Zero means full resolution (equal to
	// the per-axis bit width). Must not exceed the bit width.
	MaxDepth int

	// Logger receives operation logs. Nil disables logging.
	Logger *Logger

	// Metrics receives operation metrics. Nil disables collection.
	Metrics MetricsCollector
}

// DefaultOptions contains the default configuration options for the octree.
var DefaultOptions = Options{
	LeafCapacity: 16,
}

// WithLeafCapacity sets the per-leaf entry capacity.
func WithLeafCapacity(capacity int) func(o *Options) {
	return func(o *Options) {
		o.LeafCapacity = capacity
	}
}

// WithMaxDepth bounds the tree depth below full resolution.
func WithMaxDepth(depth int) func(o *Options) {
	return func(o *Options) {
		o.MaxDepth = depth
	}
}

// WithLogger configures operation logging.
func WithLogger(logger *Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations.
func WithMetricsCollector(metrics MetricsCollector) func(o *Options) {
	return func(o *Options) {
		o.Metrics = metrics
	}
}
