package gateway

// defaultRoomNames holds per-locale fallback names for the hub's built-in
// rooms, used when the hub reports a room with an empty name. Unknown
// locales fall back to "en".
var defaultRoomNames = map[string]map[string]string{
	"en": {
		"eb2tOJlv": "Living Room",
		"rJW7TJlv": "Master Bedroom",
		"WSPRHseG": "Second Bedroom",
		"VEnkW8An": "Dining Room",
		"GGV0Tm6o": "Kitchen",
		"RkZHO5AR": "Study",
		"bfsRC_ls": "Bathroom",
		"HgE4x4ul": "Balcony",
		"HvnhOu2h": "Hallway",
	},
	"zh": {
		"eb2tOJlv": "客厅",
		"rJW7TJlv": "主卧",
		"WSPRHseG": "次卧",
		"VEnkW8An": "餐厅",
		"GGV0Tm6o": "厨房",
		"RkZHO5AR": "书房",
		"bfsRC_ls": "卫生间",
		"HgE4x4ul": "阳台",
		"HvnhOu2h": "走廊",
	},
}

// defaultRoomsForLocale picks the default room table for a locale,
// falling back to English.
func defaultRoomsForLocale(locale string) map[string]string {
	if rooms, ok := defaultRoomNames[locale]; ok {
		return rooms
	}
	return defaultRoomNames["en"]
}
