package model

// Consumer receives the feature vectors produced for every processed packet.
// Consume is called from the pipeline goroutine and must not retain the set
// beyond what it copies.
type Consumer interface {
	Name() string
	Consume(set FeatureSet) error
	Close() error
}
