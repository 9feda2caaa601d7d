package domain

const (
	PresetNone   = "none"
	PresetXS     = "xs"
	PresetSmall  = "small"
	PresetBase   = "base"
	PresetMedium = "medium"
	PresetLarge  = "large"
	PresetXL     = "xl"
)

// Presets are the built-in badge sizes addressable by name from config.
var Presets = map[string]BadgePreset{
	PresetNone: {},
	PresetXS: {
		BoxWidth:  25,
		BoxHeight: 25,
		Container: &ContainerPreset{SidePadding: 30},
		Avatar:    AvatarPreset{Size: 20},
	},
	PresetSmall: {
		BoxWidth:  35,
		BoxHeight: 35,
		Container: &ContainerPreset{SidePadding: 30},
		Avatar:    AvatarPreset{Size: 30},
	},
	PresetBase: {
		BoxWidth:  65,
		BoxHeight: 65,
		Container: &ContainerPreset{SidePadding: 30},
		Avatar:    AvatarPreset{Size: 45},
		Name:      &NamePreset{MaxLength: 10},
	},
	PresetMedium: {
		BoxWidth:  80,
		BoxHeight: 90,
		Container: &ContainerPreset{SidePadding: 20},
		Avatar:    AvatarPreset{Size: 50},
		Name:      &NamePreset{MaxLength: 10},
	},
	PresetLarge: {
		BoxWidth:  95,
		BoxHeight: 115,
		Container: &ContainerPreset{SidePadding: 20},
		Avatar:    AvatarPreset{Size: 70},
		Name:      &NamePreset{MaxLength: 16},
	},
	PresetXL: {
		BoxWidth:  120,
		BoxHeight: 130,
		Container: &ContainerPreset{SidePadding: 20},
		Avatar:    AvatarPreset{Size: 90},
		Name:      &NamePreset{MaxLength: 20},
	},
}

// DefaultTiers mirrors the stock sponsor sheet: past sponsors, backers and
// three paid brackets.
func DefaultTiers() []Tier {
	return []Tier{
		{Title: "Past Sponsors", MonthlyDollars: Dollars(-1), PresetName: PresetXS},
		{Title: "Backers", PresetName: PresetBase},
		{Title: "Sponsors", MonthlyDollars: Dollars(10), PresetName: PresetMedium},
		{Title: "Silver Sponsors", MonthlyDollars: Dollars(50), PresetName: PresetLarge},
		{Title: "Gold Sponsors", MonthlyDollars: Dollars(100), PresetName: PresetXL},
	}
}
