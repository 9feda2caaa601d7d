package domain

import (
	"bytes"
	"encoding/json"
	"maps"
)

// SponsorType distinguishes individual sponsors from organizations.
type SponsorType string

const (
	SponsorTypeUser         SponsorType = "User"
	SponsorTypeOrganization SponsorType = "Organization"
)

// PrivacyLevel mirrors the visibility a sponsor chose on the platform.
type PrivacyLevel string

const (
	PrivacyPublic  PrivacyLevel = "PUBLIC"
	PrivacyPrivate PrivacyLevel = "PRIVATE"
)

// PastSponsorDollars marks a former sponsor with no current contribution.
const PastSponsorDollars = -1

// Sponsor is the identity and profile of a funder on one platform.
type Sponsor struct {
	Type               SponsorType       `json:"type"`
	Login              string            `json:"login"`
	Name               string            `json:"name,omitempty"`
	AvatarURL          string            `json:"avatarUrl,omitempty"`
	AvatarBuffer       []byte            `json:"avatarBuffer,omitempty"`
	AvatarURLHighRes   string            `json:"avatarUrlHighRes,omitempty"`
	AvatarURLMediumRes string            `json:"avatarUrlMediumRes,omitempty"`
	AvatarURLLowRes    string            `json:"avatarUrlLowRes,omitempty"`
	WebsiteURL         string            `json:"websiteUrl,omitempty"`
	LinkURL            string            `json:"linkUrl,omitempty"`
	SocialLogins       map[string]string `json:"socialLogins,omitempty"`
}

// Sponsorship is one funding relationship. After a merge it may stand for
// several provider records of the same sponsor.
type Sponsorship struct {
	Sponsor        Sponsor         `json:"sponsor"`
	MonthlyDollars float64         `json:"monthlyDollars"`
	PrivacyLevel   PrivacyLevel    `json:"privacyLevel,omitempty"`
	TierName       string          `json:"tierName,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
	ExpireAt       string          `json:"expireAt,omitempty"`
	IsOneTime      bool            `json:"isOneTime"`
	Provider       string          `json:"provider,omitempty"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}

// IsPast reports whether the record is a former sponsor.
func (s *Sponsorship) IsPast() bool {
	return s.MonthlyDollars == PastSponsorDollars
}

// IsPrivate reports whether the sponsor asked to stay hidden.
func (s *Sponsorship) IsPrivate() bool {
	return s.PrivacyLevel == PrivacyPrivate
}

// DisplayName returns the login, or the name when the login is empty.
func (s *Sponsorship) DisplayName() string {
	if s.Sponsor.Login != "" {
		return s.Sponsor.Login
	}
	return s.Sponsor.Name
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *Sponsorship) Clone() *Sponsorship {
	if s == nil {
		return nil
	}
	c := *s
	if s.Sponsor.SocialLogins != nil {
		c.Sponsor.SocialLogins = maps.Clone(s.Sponsor.SocialLogins)
	}
	if s.Sponsor.AvatarBuffer != nil {
		c.Sponsor.AvatarBuffer = bytes.Clone(s.Sponsor.AvatarBuffer)
	}
	if s.Raw != nil {
		c.Raw = bytes.Clone(s.Raw)
	}
	return &c
}

// CloneAll deep copies every record of ships.
func CloneAll(ships []*Sponsorship) []*Sponsorship {
	out := make([]*Sponsorship, len(ships))
	for i, s := range ships {
		out[i] = s.Clone()
	}
	return out
}

// RawJSON encodes a provider payload for the Raw passthrough field.
// Payloads that cannot be encoded are dropped.
func RawJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
