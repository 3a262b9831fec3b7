package pipeline

// Counters is a point-in-time copy of the pipeline counters.
type Counters struct {
	// Frames is every frame taken off the queue.
	Frames     uint64
	Processed  uint64
	Unparsed   uint64
	Undirected uint64
	// Dropped counts frames rejected by the capture queue because it was full.
	Dropped        uint64
	FlowFeatures   uint64
	HostFeatures   uint64
	ConsumerErrors uint64
}

// Counters returns the current counter values.
func (p *Pipeline) Counters() Counters {
	c := Counters{
		Frames:         p.counters.frames.Load(),
		Processed:      p.counters.processed.Load(),
		Unparsed:       p.counters.unparsed.Load(),
		Undirected:     p.counters.undirected.Load(),
		FlowFeatures:   p.counters.flowFeatures.Load(),
		HostFeatures:   p.counters.hostFeatures.Load(),
		ConsumerErrors: p.counters.consumerErrors.Load(),
	}
	if q := p.queue.Load(); q != nil {
		c.Dropped = q.Dropped()
	}
	return c
}
