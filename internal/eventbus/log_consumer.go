package eventbus

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/event"
)

// LogConsumer logs every generation event.
type LogConsumer struct {
	log logrus.FieldLogger
}

func NewLogConsumer(log logrus.FieldLogger) *LogConsumer { return &LogConsumer{log: log} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.GenerationEvent) error {
	entry := c.log.WithFields(logrus.Fields{
		"event":     evt.EventType,
		"module":    evt.Module,
		"uid":       evt.UID,
		"status":    evt.Status,
		"artifacts": evt.Artifacts,
		"duration":  evt.Duration.String(),
	})
	if evt.Error != "" {
		entry.WithField("error", evt.Error).Warn("generation failed")
		return nil
	}
	entry.Info("generation succeeded")
	return nil
}
