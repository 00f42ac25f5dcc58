package models

// FeatureVector is the fixed numeric encoding of one record for downstream
// ML consumption. CategoryIndex is -1 when the category is empty or unseen.
type FeatureVector struct {
	ID              string   `json:"id"`
	Price           *float64 `json:"price"`
	Rating          int      `json:"rating"`
	CategoryIndex   int      `json:"category_index"`
	TitleLength     int      `json:"title_length"`
	TitleTokenCount int      `json:"title_token_count"`
	HasImage        int      `json:"has_image"`
}

// TrainingRow is a feature vector plus the binary high-rating label.
type TrainingRow struct {
	FeatureVector
	TargetHighRating int `json:"target_high_rating"`
}
