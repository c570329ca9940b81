package wardrobe

// OutfitSuggestion is advisory output of the stylist. It is never persisted as is.
type OutfitSuggestion struct {
	Name       string   `json:"name"`
	GarmentIDs []string `json:"garmentIds"`
	Reasoning  string   `json:"reasoning"`
}

type SuggestionSet struct {
	Suggestions []OutfitSuggestion `json:"suggestions"`
	Reasoning   string             `json:"reasoning"`
}
