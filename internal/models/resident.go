package models

// NotificationPreferences holds a resident's per-channel opt-ins. All three
// flags are always present; an unset flag means the channel is disabled.
type NotificationPreferences struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
}

// Resident is one registered recipient. Owned by the resident-management
// collaborator; this service only reads it. A resident with a channel
// enabled should have the matching address populated, but a missing address
// must only skip that channel, never fail the dispatch.
type Resident struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Email   string `json:"email,omitempty"`

	Preferences NotificationPreferences `json:"notification_preferences"`
}

// AddressFor returns the delivery address for a channel and whether one is
// available. Push deliveries are keyed by resident ID; the device binding
// lives with the push provider.
func (r *Resident) AddressFor(ch Channel) (string, bool) {
	switch ch {
	case ChannelEmail:
		return r.Email, r.Email != ""
	case ChannelSMS:
		return r.Contact, r.Contact != ""
	case ChannelPush:
		return r.ID, r.ID != ""
	default:
		return "", false
	}
}
