package models

// Level is the discrete rank derived from cumulative points.
type Level struct {
	Tier int    `json:"tier"`
	Name string `json:"name"`
}

const (
	LevelNewcomer   = "newcomer"
	LevelActivist   = "activist"
	LevelEcoPatriot = "eco_patriot"
	LevelCityHero   = "city_hero"
)

// LevelFor maps total points to a level. Thresholds are inclusive.
func LevelFor(totalPoints int) Level {
	switch {
	case totalPoints >= 500:
		return Level{Tier: 4, Name: LevelCityHero}
	case totalPoints >= 200:
		return Level{Tier: 3, Name: LevelEcoPatriot}
	case totalPoints >= 50:
		return Level{Tier: 2, Name: LevelActivist}
	default:
		return Level{Tier: 1, Name: LevelNewcomer}
	}
}
