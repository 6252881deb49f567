package models

// Digest is the flat record handed back to the automation platform for
// email templating. Every field is always populated.
type Digest struct {
	Description      string   `json:"description"`
	Rating           string   `json:"rating"`
	FoodType         string   `json:"food_type"`
	FriendMessage    string   `json:"friend_message"`
	EventName        string   `json:"event_name"`
	Restaurant       string   `json:"restaurant"`
	DateTime         string   `json:"date_time"`
	ComparisonMetric string   `json:"comparison_metric"`
	MaxWords         string   `json:"max_words"`
	Emails           []string `json:"emails"`
	RawOutput        string   `json:"raw_output"`
}

// ToMap renders the digest with canonical keys plus the legacy aliases
// (gemini_description, rating_score, foodType) earlier templates read.
func (d *Digest) ToMap() map[string]any {
	emails := d.Emails
	if emails == nil {
		emails = []string{}
	}
	return map[string]any{
		"description":        d.Description,
		"gemini_description": d.Description,
		"rating_score":       d.Rating,
		"rating":             d.Rating,
		"food_type":          d.FoodType,
		"foodType":           d.FoodType,
		"friend_message":     d.FriendMessage,
		"event_name":         d.EventName,
		"restaurant":         d.Restaurant,
		"date_time":          d.DateTime,
		"comparison_metric":  d.ComparisonMetric,
		"max_words":          d.MaxWords,
		"emails":             emails,
		"raw_output":         d.RawOutput,
	}
}

// OutputKeys lists every key ToMap emits.
var OutputKeys = []string{
	"description", "gemini_description", "rating_score", "rating",
	"food_type", "foodType", "friend_message", "event_name", "restaurant",
	"date_time", "comparison_metric", "max_words", "emails", "raw_output",
}
