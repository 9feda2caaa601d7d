package domain

// AvatarPreset sizes the avatar inside a badge.
type AvatarPreset struct {
	Size    float64 `yaml:"size" json:"size"`
	Classes string  `yaml:"classes" json:"classes,omitempty"`
}

// NamePreset controls the caption under an avatar.
type NamePreset struct {
	Color     string `yaml:"color" json:"color,omitempty"`
	Classes   string `yaml:"classes" json:"classes,omitempty"`
	MaxLength int    `yaml:"maxLength" json:"maxLength,omitempty"`
}

// ContainerPreset controls the grid that holds the badges.
type ContainerPreset struct {
	SidePadding float64 `yaml:"sidePadding" json:"sidePadding,omitempty"`
}

// BadgePreset describes how a single sponsor badge is laid out. A nil Name
// hides the caption.
type BadgePreset struct {
	BoxWidth  float64          `yaml:"boxWidth" json:"boxWidth"`
	BoxHeight float64          `yaml:"boxHeight" json:"boxHeight"`
	Avatar    AvatarPreset     `yaml:"avatar" json:"avatar"`
	Name      *NamePreset      `yaml:"name" json:"name,omitempty"`
	Container *ContainerPreset `yaml:"container" json:"container,omitempty"`
	Classes   string           `yaml:"classes" json:"classes,omitempty"`
}

// Padding is vertical spacing in pixels. Nil fields fall back to defaults.
type Padding struct {
	Top    *float64 `yaml:"top" json:"top,omitempty"`
	Bottom *float64 `yaml:"bottom" json:"bottom,omitempty"`
}

// TopOr returns the top padding or fallback when unset.
func (p Padding) TopOr(fallback float64) float64 {
	if p.Top == nil {
		return fallback
	}
	return *p.Top
}

// BottomOr returns the bottom padding or fallback when unset.
func (p Padding) BottomOr(fallback float64) float64 {
	if p.Bottom == nil {
		return fallback
	}
	return *p.Bottom
}

// Composer is the drawing surface handed to tier hooks.
type Composer interface {
	AddSpan(height float64) Composer
	AddTitle(text string) Composer
	AddText(text, class string) Composer
	AddSponsorGrid(ships []*Sponsorship, preset BadgePreset) Composer
	AddRaw(svg string) Composer
}

// ComposeFunc draws a tier, or content around it.
type ComposeFunc func(c Composer, ships []*Sponsorship)

// Tier is a configured monetary bracket. MonthlyDollars is the inclusive
// lower bound; nil or 0 marks the catch-all tier.
type Tier struct {
	Title          string       `yaml:"title" json:"title,omitempty"`
	MonthlyDollars *float64     `yaml:"monthlyDollars" json:"monthlyDollars,omitempty"`
	PresetName     string       `yaml:"preset" json:"preset,omitempty"`
	Preset         *BadgePreset `yaml:"customPreset" json:"customPreset,omitempty"`
	Padding        Padding      `yaml:"padding" json:"padding,omitempty"`

	ComposeBefore ComposeFunc `yaml:"-" json:"-"`
	Compose       ComposeFunc `yaml:"-" json:"-"`
	ComposeAfter  ComposeFunc `yaml:"-" json:"-"`
}

// LowerBound returns MonthlyDollars with nil resolved to 0.
func (t Tier) LowerBound() float64 {
	if t.MonthlyDollars == nil {
		return 0
	}
	return *t.MonthlyDollars
}

// IsCatchAll reports whether t absorbs sponsors no other tier accepts.
func (t Tier) IsCatchAll() bool {
	return t.LowerBound() == 0
}

// ResolvedPreset returns the explicit preset, then the named one, then base.
func (t Tier) ResolvedPreset() BadgePreset {
	if t.Preset != nil {
		return *t.Preset
	}
	if p, ok := Presets[t.PresetName]; ok {
		return p
	}
	return Presets[PresetBase]
}

// TierPartition is one tier with the sponsors classified into it.
type TierPartition struct {
	MonthlyDollars float64
	Tier           Tier
	Sponsors       []*Sponsorship
}

// Dollars is a helper for building tier bounds inline.
func Dollars(v float64) *float64 {
	return &v
}
