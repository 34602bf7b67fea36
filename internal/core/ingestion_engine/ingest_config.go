package ingestion_engine

import "time"

// IngestConfig tunes the ingestion pipeline.
//
// Bucket:           blob bucket for raw uploads.
// Workers:          background workers draining the queue.
// QueueSize:        capacity of the in-memory job queue.
// BatchParallelism: concurrent uploads within one batch.
// ProcessTimeout:   upper bound for one document; zero disables it.
type IngestConfig struct {
	Bucket           string
	Workers          int
	QueueSize        int
	BatchParallelism int
	ProcessTimeout   time.Duration
}

func (c IngestConfig) withDefaults() IngestConfig {
	if c.Bucket == "" {
		c.Bucket = "documents"
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.BatchParallelism <= 0 {
		c.BatchParallelism = 4
	}
	return c
}
