package identity

import (
	"encoding/json"
	"fmt"
)

// Profile is the identity provider's view of the signed-in user.
type Profile struct {
	ID           string `json:"id,omitempty"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
	PublicAlias  string `json:"publicAlias,omitempty"`

	// Raw holds every field the provider returned, including the ones above.
	Raw map[string]any `json:"raw,omitempty"`
}

// String renders the profile the way it is shown to users.
func (p *Profile) String() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", p.EmailAddress, p.DisplayName)
}

// parseProfile decodes a provider profile document, keeping the raw fields.
func parseProfile(body []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	p.Raw = nil
	if err := json.Unmarshal(body, &p.Raw); err != nil {
		return nil, err
	}
	if p.EmailAddress == "" {
		return nil, fmt.Errorf("profile has no email address")
	}
	return &p, nil
}
