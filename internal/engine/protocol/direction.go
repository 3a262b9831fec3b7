package protocol

import (
	"net/netip"

	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// Resolver classifies packets as leaving or entering the monitored hosts.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	local map[netip.Addr]struct{}
}

// NewResolver builds a Resolver from the set of local addresses.
func NewResolver(local []netip.Addr) *Resolver {
	r := &Resolver{local: make(map[netip.Addr]struct{}, len(local))}
	for _, addr := range local {
		r.local[addr.Unmap()] = struct{}{}
	}
	return r
}

// IsLocal reports whether addr belongs to the monitored hosts.
func (r *Resolver) IsLocal(addr netip.Addr) bool {
	_, ok := r.local[addr]
	return ok
}

// Resolve returns Forward when only src is local, Backward when only dst is local
// and DirectionNone when both or neither are.
func (r *Resolver) Resolve(src, dst netip.Addr) model.Direction {
	srcLocal, dstLocal := r.IsLocal(src), r.IsLocal(dst)
	switch {
	case srcLocal && !dstLocal:
		return model.Forward
	case dstLocal && !srcLocal:
		return model.Backward
	default:
		return model.DirectionNone
	}
}
