// Package window maintains exact sliding-window statistics per flow and per host.
//
// Each engine keeps the raw packets of the last window_size seconds for every key
// and rebuilds the aggregates from that buffer on every packet. Engines are owned
// by a single goroutine and do no locking.
package window

import "github.com/TrieuQuan2005/IdsService/internal/model"

// buffer is the arrival-ordered packet list of one key.
type buffer struct {
	packets []model.PacketRecord
}

// push appends p and evicts every packet older than p.Timestamp - size.
func (b *buffer) push(p model.PacketRecord, size float64) {
	b.packets = append(b.packets, p)
	start := p.Timestamp - size
	i := 0
	for i < len(b.packets) && b.packets[i].Timestamp < start {
		i++
	}
	if i == 0 {
		return
	}
	// compact once more than half of the backing array is dead
	if i > cap(b.packets)/2 {
		b.packets = append(make([]model.PacketRecord, 0, len(b.packets)-i+1), b.packets[i:]...)
		return
	}
	b.packets = b.packets[i:]
}

func (b *buffer) newest() float64 {
	return b.packets[len(b.packets)-1].Timestamp
}

func rate(count, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return count / duration
}

func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total)
}
