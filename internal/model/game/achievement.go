package game

import "time"

// Achievement is one entry of the fixed catalog. Unlock is one-way: once
// unlocked an achievement never reverts.
type Achievement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// Counters is the snapshot of progress numbers the evaluator runs over.
type Counters struct {
	ActionsTaken     int `json:"actionsTaken"`
	LocationsVisited int `json:"locationsVisited"`
	NPCsMet          int `json:"npcsMet"`
	ItemsHeld        int `json:"itemsHeld"`
}

// SeedAchievements provides the default catalog created at startup.
func SeedAchievements() []Achievement {
	return []Achievement{
		{ID: "first-steps", Title: "First Steps", Description: "Take your first action."},
		{ID: "wanderer", Title: "Wanderer", Description: "Discover 5 locations."},
		{ID: "cartographer", Title: "Cartographer", Description: "Discover 20 locations."},
		{ID: "friendly-face", Title: "Friendly Face", Description: "Meet 5 characters."},
		{ID: "social-butterfly", Title: "Social Butterfly", Description: "Meet 15 characters."},
		{ID: "collector", Title: "Collector", Description: "Hold 5 items."},
		{ID: "pack-rat", Title: "Pack Rat", Description: "Hold 15 items."},
		{ID: "seasoned-adventurer", Title: "Seasoned Adventurer", Description: "Take 50 actions."},
		{ID: "legend", Title: "Legend", Description: "Take 200 actions."},
	}
}
