package dto

type ModelDTO struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Provider string `json:"provider"`
}

// ModelsResponse groups the catalog by provider type, with the configured
// default called out separately.
type ModelsResponse struct {
	Default ModelDTO              `json:"default"`
	Models  map[string][]ModelDTO `json:"models"`
}
