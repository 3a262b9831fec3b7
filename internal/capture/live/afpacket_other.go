//go:build !linux

package live

import (
	"errors"

	"github.com/TrieuQuan2005/IdsService/internal/capture"
)

// NewAFPacketSource is only available on linux.
func NewAFPacketSource(cfg Config) (*capture.ReaderSource, error) {
	return nil, errors.New("capture: afpacket sources require linux")
}
