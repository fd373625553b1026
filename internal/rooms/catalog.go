package rooms

import "convene/pkg/model"

// Catalog is the static set of bookable rooms, seeded into Mongo at
// startup so conflict checks and catalog reads share one source.
var Catalog = []model.Room{
	{
		ID:       "atlas-huddle",
		Name:     "Atlas Huddle Room",
		Capacity: 4,
		Location: "HQ · 5th Floor · West Wing",
		Features: []string{"Whiteboard", "4K Display", "Video conferencing"},
		Notes:    "Great for quick stand-ups or pairing sessions.",
	},
	{
		ID:       "orion-boardroom",
		Name:     "Orion Boardroom",
		Capacity: 12,
		Location: "HQ · 8th Floor · Executive Suite",
		Features: []string{"Dual displays", "Poly conference bar", "Speakerphone", "Glass wall"},
		Notes:    "Best for leadership reviews and client presentations.",
	},
	{
		ID:       "luna-lab",
		Name:     "Luna Collaboration Lab",
		Capacity: 8,
		Location: "Innovation Hub · 2nd Floor",
		Features: []string{"Interactive display", "Ceiling mics", "Floor-to-ceiling whiteboards"},
		Notes:    "Optimized for design sprints and workshops.",
	},
	{
		ID:       "terra-forum",
		Name:     "Terra Forum",
		Capacity: 20,
		Location: "HQ · 1st Floor · Event Center",
		Features: []string{"Stage lighting", "Motorized shades", "Wireless presentation", "Assistive listening"},
		Notes:    "Ideal for all-hands, training, or customer demos.",
	},
	{
		ID:       "nova-focus",
		Name:     "Nova Focus Room",
		Capacity: 2,
		Location: "HQ · 6th Floor · Quiet Zone",
		Features: []string{"Acoustic panels", `27" display`},
		Notes:    "Perfect for interviews or private syncs.",
	},
}
