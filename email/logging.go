package email

import (
	"context"

	"github.com/rs/zerolog"
)

// LogDispatcher writes deliveries to the log instead of sending them. The code itself is
// only logged when includeCode is set.
type LogDispatcher struct {
	logger      zerolog.Logger
	includeCode bool
}

func NewLogDispatcher(logger zerolog.Logger, includeCode bool) *LogDispatcher {
	return &LogDispatcher{logger: logger, includeCode: includeCode}
}

func (d *LogDispatcher) Deliver(_ context.Context, msg Message) error {
	event := d.logger.Info().
		Str("mode", d.Mode()).
		Str("user_id", msg.UserID).
		Str("email", MaskEmail(msg.Email)).
		Int("expires_in", msg.TTLSeconds)

	if d.includeCode {
		event.Str("code", msg.Code).Msgf("%s code prepared", eventName(msg.Purpose))
		return nil
	}
	event.Msgf("%s delivery bypassed", eventName(msg.Purpose))
	return nil
}

func (d *LogDispatcher) Mode() string {
	return "log"
}
