// Package indexing provides background indexing pipeline configuration options.
package indexing

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/ai-nk/rag-service/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains background indexing configuration.
type Options struct {
	// Workers is the number of concurrent indexing workers.
	Workers int `json:"workers" mapstructure:"workers"`

	// QueueSize caps the number of pending tasks in memory.
	QueueSize int `json:"queue-size" mapstructure:"queue-size"`

	// MaxRetries is the number of retries before a task fails permanently.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// BaseDelay is the first retry delay; subsequent delays double.
	BaseDelay time.Duration `json:"base-delay" mapstructure:"base-delay"`

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration `json:"max-delay" mapstructure:"max-delay"`

	// StuckTimeout is how long a task may sit in the indexing state before
	// the monitor re-queues it.
	StuckTimeout time.Duration `json:"stuck-timeout" mapstructure:"stuck-timeout"`

	// MonitorInterval is how often the stuck-task monitor runs.
	MonitorInterval time.Duration `json:"monitor-interval" mapstructure:"monitor-interval"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Workers:         3,
		QueueSize:       256,
		MaxRetries:      3,
		BaseDelay:       2 * time.Second,
		MaxDelay:        5 * time.Minute,
		StuckTimeout:    10 * time.Minute,
		MonitorInterval: time.Minute,
	}
}

// AddFlags adds flags for indexing options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.Workers, options.Join(prefixes...)+"indexing.workers", o.Workers, "Number of concurrent indexing workers.")
	fs.IntVar(&o.QueueSize, options.Join(prefixes...)+"indexing.queue-size", o.QueueSize, "Maximum number of queued indexing tasks.")
	fs.IntVar(&o.MaxRetries, options.Join(prefixes...)+"indexing.max-retries", o.MaxRetries, "Retries before a task fails permanently.")
	fs.DurationVar(&o.BaseDelay, options.Join(prefixes...)+"indexing.base-delay", o.BaseDelay, "Initial retry backoff delay.")
	fs.DurationVar(&o.MaxDelay, options.Join(prefixes...)+"indexing.max-delay", o.MaxDelay, "Maximum retry backoff delay.")
	fs.DurationVar(&o.StuckTimeout, options.Join(prefixes...)+"indexing.stuck-timeout", o.StuckTimeout, "Age at which an in-flight task is considered stuck.")
	fs.DurationVar(&o.MonitorInterval, options.Join(prefixes...)+"indexing.monitor-interval", o.MonitorInterval, "Interval between stuck-task scans.")
}

// Validate validates the indexing options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive"))
	}
	if o.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queue-size must be positive"))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max-retries must be non-negative"))
	}
	if o.BaseDelay <= 0 {
		errs = append(errs, fmt.Errorf("base-delay must be positive"))
	}
	if o.MaxDelay < o.BaseDelay {
		errs = append(errs, fmt.Errorf("max-delay must be >= base-delay"))
	}
	if o.StuckTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stuck-timeout must be positive"))
	}
	return errs
}
