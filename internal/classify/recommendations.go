package classify

var recommendationsByDisease = map[string][]string{
	"healthy": {
		"Your plant appears to be healthy!",
		"Continue with regular watering and care.",
		"Monitor for any changes in appearance.",
	},
	"bacterial_spot": {
		"Remove infected leaves and destroy them.",
		"Avoid overhead watering to prevent spread.",
		"Apply copper-based fungicide.",
		"Improve air circulation around plants.",
	},
	"early_blight": {
		"Remove and destroy infected leaves.",
		"Apply fungicide containing chlorothalonil.",
		"Avoid overhead watering.",
		"Space plants properly for better air circulation.",
	},
	"late_blight": {
		"Remove all infected plant parts immediately.",
		"Apply fungicide containing copper or chlorothalonil.",
		"Avoid overhead watering.",
		"Improve air circulation and reduce humidity.",
	},
	"leaf_mold": {
		"Remove infected leaves.",
		"Improve air circulation.",
		"Reduce humidity levels.",
		"Apply fungicide if necessary.",
	},
	"septoria_leaf_spot": {
		"Remove infected leaves and destroy them.",
		"Apply fungicide containing chlorothalonil.",
		"Avoid overhead watering.",
		"Space plants properly.",
	},
	"spider_mites": {
		"Spray plants with water to dislodge mites.",
		"Apply insecticidal soap or neem oil.",
		"Introduce predatory mites if available.",
		"Increase humidity to discourage mites.",
	},
	"target_spot": {
		"Remove infected leaves.",
		"Apply fungicide containing chlorothalonil.",
		"Avoid overhead watering.",
		"Improve air circulation.",
	},
	"yellow_leaf_curl_virus": {
		"Remove and destroy infected plants.",
		"Control whitefly populations.",
		"Use virus-resistant varieties.",
		"Practice good sanitation.",
	},
	"mosaic_virus": {
		"Remove and destroy infected plants.",
		"Control aphid populations.",
		"Use virus-resistant varieties.",
		"Disinfect tools between uses.",
	},
}

var genericRecommendations = []string{
	"Monitor the plant closely for changes.",
	"Consider consulting with a plant expert.",
	"Maintain proper watering and care practices.",
}

// Recommendations returns care advice for a predicted disease, falling back
// to generic advice for labels outside the known set.
func Recommendations(disease string) []string {
	if recs, ok := recommendationsByDisease[disease]; ok {
		return recs
	}
	return genericRecommendations
}

// CareInstructions describes routine care for the supported crop.
type CareInstructions struct {
	Watering    string `json:"watering"`
	Sunlight    string `json:"sunlight"`
	Soil        string `json:"soil"`
	Temperature string `json:"temperature"`
}

// PlantInfo is static reference data about the plant a diagnosis concerns.
type PlantInfo struct {
	Name             string           `json:"name"`
	ScientificName   string           `json:"scientificName"`
	Family           string           `json:"family"`
	Description      string           `json:"description"`
	CareInstructions CareInstructions `json:"careInstructions"`
}

// DefaultPlantInfo returns the reference card for the supported crop. The
// simulated model only covers tomato diseases.
func DefaultPlantInfo() PlantInfo {
	return PlantInfo{
		Name:           "Tomato Plant",
		ScientificName: "Solanum lycopersicum",
		Family:         "Solanaceae",
		Description:    "A popular vegetable plant grown for its edible fruits.",
		CareInstructions: CareInstructions{
			Watering:    "Water deeply but infrequently, allowing soil to dry between waterings.",
			Sunlight:    "Full sun (6-8 hours per day)",
			Soil:        "Well-draining, rich soil with pH 6.0-6.8",
			Temperature: "Optimal temperature range: 65-85°F (18-29°C)",
		},
	}
}
