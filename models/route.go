package models

// TextValue is the {text, value} pair the maps API uses for durations and distances.
type TextValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type RouteStep struct {
	HTMLInstructions string    `json:"html_instructions"`
	Distance         TextValue `json:"distance"`
	Duration         TextValue `json:"duration"`
}

type RouteLeg struct {
	Duration TextValue   `json:"duration"`
	Distance TextValue   `json:"distance"`
	Steps    []RouteStep `json:"steps"`
}

type Route struct {
	Summary string     `json:"summary"`
	Legs    []RouteLeg `json:"legs"`
}

// DirectionsResponse mirrors the Directions API JSON.
type DirectionsResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Routes       []Route `json:"routes"`
}

type MatrixElement struct {
	Status   string    `json:"status"`
	Duration TextValue `json:"duration"`
	Distance TextValue `json:"distance"`
}

type MatrixRow struct {
	Elements []MatrixElement `json:"elements"`
}

// DistanceMatrixResponse mirrors the Distance Matrix API JSON.
type DistanceMatrixResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Rows         []MatrixRow `json:"rows"`
}
