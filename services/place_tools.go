package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/MrCactuss/Ai-Powered-App-Project/models"
)

const (
	mapsUnavailable = "Error: Google Maps client is not available on the server."
	maxPlaceResults = 3
)

// MapTools are the tool functions backed by the maps provider. Every method
// returns a display string; errors never leave this type.
type MapTools struct {
	maps *MapsService
	city models.City
}

func NewMapTools(maps *MapsService, city models.City) *MapTools {
	return &MapTools{maps: maps, city: city}
}

// FindPlaces searches for placeType near area (the whole city when empty).
func (t *MapTools) FindPlaces(ctx context.Context, placeType, area string) string {
	if area == "" {
		area = t.city.Name
	}
	logger := log.With().Str("tool", ToolFindPlaces).Str("place_type", placeType).Str("area", area).Logger()
	logger.Info().Msg("Finding places")

	if !t.maps.Available() {
		return mapsUnavailable
	}

	query := fmt.Sprintf("%s in %s", placeType, t.city.Qualify(area))
	result, err := t.maps.TextSearch(ctx, query)
	if err != nil {
		logger.Error().Err(err).Msg("Place search failed")
		return "Sorry, I encountered an error while searching for places."
	}

	switch {
	case result.Status == MapsStatusOK && len(result.Results) > 0:
		lines := []string{fmt.Sprintf("Found these '%s' options near '%s':", placeType, area)}
		for i, place := range result.Results {
			if i == maxPlaceResults {
				break
			}
			lines = append(lines, fmt.Sprintf("%d. %s at %s (Rating: %s)",
				i+1, orNA(place.Name), placeAddress(place), formatRating(place.Rating)))
		}
		if len(result.Results) > maxPlaceResults {
			lines = append(lines, "There might be more options available.")
		}
		return strings.Join(lines, "\n")
	case result.Status == MapsStatusZeroResults || result.Status == MapsStatusOK:
		return fmt.Sprintf("Sorry, I couldn't find any '%s' matching your search near '%s' in %s.", placeType, area, t.city.Name)
	default:
		logger.Warn().Str("status", result.Status).Str("error_message", result.ErrorMessage).Msg("Place search returned an error status")
		return fmt.Sprintf("Sorry, there was an issue searching for places (Status: %s). Check API key/quota?", result.Status)
	}
}

// GetPlaceDetails resolves placeName (optionally narrowed by address) to the
// best match and reports its contact details and opening hours.
func (t *MapTools) GetPlaceDetails(ctx context.Context, placeName, address string) string {
	logger := log.With().Str("tool", ToolGetPlaceDetails).Str("place_name", placeName).Str("address", address).Logger()
	logger.Info().Msg("Getting place details")

	if !t.maps.Available() {
		return mapsUnavailable
	}

	query := fmt.Sprintf("%s in %s", placeName, t.city.Scope())
	if address != "" {
		query = t.city.Qualify(placeName + ", " + address)
	}

	found, err := t.maps.TextSearch(ctx, query)
	if err != nil {
		logger.Error().Err(err).Msg("Place lookup failed")
		return "Sorry, an error occurred while fetching place details."
	}

	if found.Status != MapsStatusOK || len(found.Results) == 0 {
		if found.Status == MapsStatusOK || found.Status == MapsStatusZeroResults {
			at := ""
			if address != "" {
				at = fmt.Sprintf(" at '%s'", address)
			}
			return fmt.Sprintf("Sorry, I couldn't find a unique place matching '%s'%s.", placeName, at)
		}
		logger.Warn().Str("status", found.Status).Str("error_message", found.ErrorMessage).Msg("Place lookup returned an error status")
		return fmt.Sprintf("Sorry, there was an issue looking up '%s' (Status: %s).", placeName, found.Status)
	}

	placeID := found.Results[0].PlaceID
	if placeID == "" {
		return "Sorry, couldn't get a place ID to fetch details."
	}
	logger.Debug().Str("place_id", placeID).Msg("Resolved place")

	details, err := t.maps.PlaceDetails(ctx, placeID)
	if err != nil {
		logger.Error().Err(err).Msg("Place details request failed")
		return "Sorry, an error occurred while fetching place details."
	}
	if details.Status != MapsStatusOK {
		logger.Warn().Str("status", details.Status).Msg("Place details returned an error status")
		return fmt.Sprintf("Sorry, couldn't fetch details. Status: %s", details.Status)
	}

	return formatPlaceDetails(details.Result, placeName)
}

func formatPlaceDetails(place models.PlaceDetails, fallbackName string) string {
	name := place.Name
	if name == "" {
		name = fallbackName
	}

	lines := []string{fmt.Sprintf("Details for %s:", name)}
	if place.FormattedAddress != "" {
		lines = append(lines, "- Address: "+place.FormattedAddress)
	}
	if place.InternationalPhoneNumber != "" {
		lines = append(lines, "- Phone: "+place.InternationalPhoneNumber)
	}
	if place.Website != "" {
		lines = append(lines, "- Website: "+place.Website)
	}
	if place.Rating != nil && *place.Rating > 0 {
		lines = append(lines, fmt.Sprintf("- Rating: %s (%d reviews)", formatRating(place.Rating), place.UserRatingsTotal))
	}
	if hours := place.OpeningHours; hours != nil {
		if len(hours.WeekdayText) > 0 {
			lines = append(lines, "- Opening Hours:")
			for _, day := range hours.WeekdayText {
				lines = append(lines, "  "+day)
			}
		} else {
			open := "No"
			if hours.OpenNow != nil && *hours.OpenNow {
				open = "Yes"
			}
			lines = append(lines, "- Open Now: "+open)
		}
	}
	return strings.Join(lines, "\n")
}

func placeAddress(place models.Place) string {
	if place.Vicinity != "" {
		return place.Vicinity
	}
	return orNA(place.FormattedAddress)
}

func formatRating(rating *float64) string {
	if rating == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*rating, 'f', -1, 64)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
