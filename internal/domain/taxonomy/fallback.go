package taxonomy

// Fallback is the minimal taxonomy used when discovery fails, so an
// iteration can always proceed.
func Fallback() *Taxonomy {
	return New(
		Category{Name: "crime_type", Subcategories: []Subcategory{
			{Name: "financial_fraud", Tags: []string{"investment_scam", "job_fraud", "loan_fraud"}},
			{Name: "identity_crimes", Tags: []string{"sim_card_fraud", "account_takeover"}},
		}},
		Category{Name: "attack_vector", Subcategories: []Subcategory{
			{Name: "technical", Tags: []string{"phishing_link", "malicious_app"}},
			{Name: "social", Tags: []string{"impersonation", "relationship_building"}},
		}},
		Category{Name: "victim_approach", Subcategories: []Subcategory{
			{Name: "direct_contact", Tags: []string{"cold_call", "whatsapp_message"}},
			{Name: "platform_based", Tags: []string{"social_media_friend_request", "dating_app_match"}},
		}},
		Category{Name: "technology_platform", Subcategories: []Subcategory{
			{Name: "messaging", Tags: []string{"whatsapp", "telegram"}},
			{Name: "social_media", Tags: []string{"facebook", "instagram"}},
		}},
		Category{Name: "victim_demographics", Subcategories: []Subcategory{
			{Name: "age_group", Tags: []string{"young_adult", "elderly"}},
			{Name: "tech_familiarity", Tags: []string{"novice", "advanced"}},
		}},
		Category{Name: "impact_outcome", Subcategories: []Subcategory{
			{Name: "financial", Tags: []string{"direct_monetary_loss"}},
			{Name: "personal", Tags: []string{"privacy_breach", "emotional_trauma"}},
		}},
		Category{Name: "social_engineering", Subcategories: []Subcategory{
			{Name: "pressure_tactics", Tags: []string{"time_pressure", "authority_pressure"}},
		}},
		Category{Name: "geographic_temporal", Subcategories: []Subcategory{
			{Name: "location", Tags: []string{"local", "cross_border"}},
		}},
	)
}
