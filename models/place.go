package models

// Place is one entry of a text search response.
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
}

// PlaceSearchResponse mirrors the Places text search JSON.
type PlaceSearchResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Results      []Place `json:"results"`
}

type OpeningHours struct {
	OpenNow     *bool    `json:"open_now,omitempty"`
	WeekdayText []string `json:"weekday_text,omitempty"`
}

// PlaceDetails is the expanded field set returned by the details endpoint.
type PlaceDetails struct {
	Name                     string        `json:"name"`
	FormattedAddress         string        `json:"formatted_address,omitempty"`
	InternationalPhoneNumber string        `json:"international_phone_number,omitempty"`
	Website                  string        `json:"website,omitempty"`
	OpeningHours             *OpeningHours `json:"opening_hours,omitempty"`
	Rating                   *float64      `json:"rating,omitempty"`
	UserRatingsTotal         int           `json:"user_ratings_total,omitempty"`
}

type PlaceDetailsResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Result       PlaceDetails `json:"result"`
}
