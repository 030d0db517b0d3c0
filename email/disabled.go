package email

import "context"

const defaultDisabledReason = "email delivery is disabled"

// DisabledDispatcher refuses every message.
type DisabledDispatcher struct {
	reason string
	mode   string
}

func NewDisabledDispatcher(reason string) *DisabledDispatcher {
	if reason == "" {
		reason = defaultDisabledReason
	}
	return &DisabledDispatcher{reason: reason, mode: "disabled"}
}

func (d *DisabledDispatcher) Deliver(_ context.Context, _ Message) error {
	return deliveryError("%s", d.reason)
}

func (d *DisabledDispatcher) Mode() string {
	return d.mode
}
