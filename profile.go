package tamarom

// statsLayout selects how the partner table packs its records. The two
// device families use different encodings of the same data.
type statsLayout int

const (
	// layoutPacked is the D-3 encoding: a flat little-endian word
	// stream over fixed size records where the first partner has no
	// name index and every later one carries five words.
	layoutPacked statsLayout = iota
	// layoutStrided is the Digivice encoding: partner i reads its name
	// index from its own record and its power from the start of the
	// next one.
	layoutStrided
)

// Profile carries everything that differs between the supported device
// families. Values are copied, never mutated; treat a Profile as a
// constant.
type Profile struct {
	Name  string
	Label string

	// NameArchivePaths are the archive location keys holding character
	// name tables. Writes outside these archives are refused.
	NameArchivePaths []string

	// NPCIndexes are the string indexes of non-player character names
	// within the name archives.
	NPCIndexes []int

	// FirstNameIndex is the name index of the first partner when the
	// layout does not store one (packed layout only).
	FirstNameIndex int

	StatsBase   int
	RecordSize  int
	RecordCount int
	Layout      statsLayout

	// MaxPower caps partner power writes; a row above the cap keeps
	// whatever power word the image already has.
	MaxPower int

	// MaxSpriteIndex is the last image index worth exporting; indexes
	// beyond it are garbage tables.
	MaxSpriteIndex int

	// MinImages, MaxImages and MinColors bound the sprite package
	// locator.
	MinImages int
	MaxImages int
	MinColors int
}

// D3 is the profile for the D-3 25th anniversary color device.
func D3() Profile {
	return Profile{
		Name:  "d3",
		Label: "D-3 25th Color Evolution",
		NameArchivePaths: []string{
			"off=0x1EC000/idx=0",
			"off=0x140000/idx=4/idx=0",
		},
		NPCIndexes: []int{
			136, 144, 151, 155, 187, 302, 303, 304, 305, 306, 307, 308, 309,
			310, 311, 212, 213, 214, 215, 216, 217, 218, 219, 220, 221, 222,
			223, 224, 225, 226, 227, 228, 229, 230, 231, 232, 233, 234, 235,
			236, 237, 238, 239, 240, 241, 242, 243, 244, 245, 246, 247, 248,
			249, 250, 251, 252, 253, 254,
		},
		FirstNameIndex: 2,
		StatsBase:      0x0a21cc,
		RecordSize:     8,
		RecordCount:    155,
		Layout:         layoutPacked,
		MaxPower:       225,
		MaxSpriteIndex: 2115,
		MinImages:      1000,
		MaxImages:      5000,
		MinColors:      64,
	}
}

// Digivice is the profile for the Digivice 25th anniversary color device.
func Digivice() Profile {
	return Profile{
		Name:             "digivice",
		Label:            "Digivice 25th Color Evolution",
		NameArchivePaths: []string{"off=0x194000/idx=0"},
		NPCIndexes: []int{
			95, 102, 106, 109, 112, 115, 118,
			139, 140, 141, 142, 143, 144, 145, 146,
			147, 148, 149, 150, 151, 152, 153, 154,
			155, 156, 157, 158, 159, 160, 161, 162,
			163, 164, 165, 166, 167, 168, 169, 170,
			171, 172, 173, 174, 175, 176, 177, 178,
			179, 180, 181,
		},
		StatsBase:      0x097f2a,
		RecordSize:     10,
		RecordCount:    112,
		Layout:         layoutStrided,
		MaxPower:       225,
		MaxSpriteIndex: 1578,
		MinImages:      1000,
		MaxImages:      5000,
		MinColors:      64,
	}
}

// Profiles returns every known device profile.
func Profiles() []Profile {
	return []Profile{D3(), Digivice()}
}

// ProfileByName looks a profile up by its short name.
func ProfileByName(name string) (Profile, bool) {
	for _, p := range Profiles() {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
