package probe

import (
	log "github.com/sirupsen/logrus"

	"github.com/TrieuQuan2005/IdsService/internal/model"
)

// LogConsumer writes every feature set to the logger at debug level.
type LogConsumer struct {
	logger *log.Entry
}

// NewLogConsumer creates a LogConsumer on the standard logger.
func NewLogConsumer() *LogConsumer {
	return &LogConsumer{logger: log.WithField("consumer", "log")}
}

func (c *LogConsumer) Name() string { return "log" }

func (c *LogConsumer) Consume(set model.FeatureSet) error {
	if !c.logger.Logger.IsLevelEnabled(log.DebugLevel) {
		return nil
	}
	c.logger.WithFields(log.Fields{
		"flow":    set.Flow.Key.String(),
		"packets": set.Flow.PacketCount,
		"pps":     set.Flow.PacketsPerSecond,
		"syn":     set.Flow.SynRatio,
	}).Debug("Flow features")
	c.logger.WithFields(log.Fields{
		"host":      set.Host.SrcIP.String(),
		"dst_ips":   set.Host.UniqueDstIPs,
		"dst_ports": set.Host.UniqueDstPorts,
		"entropy":   set.Host.PortEntropy,
		"failed":    set.Host.FailedConnectionRatio,
	}).Debug("Host features")
	return nil
}

func (c *LogConsumer) Close() error { return nil }
