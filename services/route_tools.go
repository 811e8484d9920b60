package services

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	DefaultTravelMode = "driving"
	maxRouteSteps     = 3
)

var (
	travelModes = []string{"driving", "walking", "bicycling", "transit"}
	htmlTag     = regexp.MustCompile(`<[^<]+?>`)
)

// NormalizeTravelMode lower-cases mode and falls back to driving for anything
// the maps provider does not support.
func NormalizeTravelMode(mode string) string {
	m := strings.ToLower(strings.TrimSpace(mode))
	if !lo.Contains(travelModes, m) {
		return DefaultTravelMode
	}
	return m
}

// StripHTML removes markup from a step instruction.
func StripHTML(text string) string {
	if text == "" {
		return ""
	}
	return html.UnescapeString(htmlTag.ReplaceAllString(text, ""))
}

// GetDirections reports the first route between origin and destination with
// at most three step instructions.
func (t *MapTools) GetDirections(ctx context.Context, origin, destination, mode string) string {
	mode = NormalizeTravelMode(mode)
	logger := log.With().Str("tool", ToolGetDirections).Str("origin", origin).Str("destination", destination).Str("mode", mode).Logger()
	logger.Info().Msg("Getting directions")

	if !t.maps.Available() {
		return mapsUnavailable
	}

	result, err := t.maps.Directions(ctx, t.city.Qualify(origin), t.city.Qualify(destination), mode)
	if err != nil {
		logger.Error().Err(err).Msg("Directions request failed")
		return "Sorry, an error occurred while fetching directions."
	}

	noRoute := fmt.Sprintf("Sorry, couldn't find directions from '%s' to '%s' by %s.", origin, destination, mode)
	switch result.Status {
	case MapsStatusOK:
	case MapsStatusZeroResults, MapsStatusNotFound:
		return noRoute
	default:
		logger.Warn().Str("status", result.Status).Str("error_message", result.ErrorMessage).Msg("Directions returned an error status")
		return fmt.Sprintf("Sorry, there was an issue fetching directions (Status: %s).", result.Status)
	}

	if len(result.Routes) == 0 || len(result.Routes[0].Legs) == 0 {
		return noRoute
	}

	leg := result.Routes[0].Legs[0]
	lines := []string{fmt.Sprintf("Directions from %s to %s by %s (%s, %s):",
		origin, destination, mode, leg.Duration.Text, leg.Distance.Text)}
	for i, step := range leg.Steps {
		if i == maxRouteSteps {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, StripHTML(step.HTMLInstructions), step.Distance.Text))
	}
	if len(leg.Steps) > maxRouteSteps {
		lines = append(lines, "...")
	}
	return strings.Join(lines, "\n")
}

// GetDistanceTime reports travel duration and distance for one pair.
func (t *MapTools) GetDistanceTime(ctx context.Context, origin, destination, mode string) string {
	mode = NormalizeTravelMode(mode)
	logger := log.With().Str("tool", ToolGetDistanceTime).Str("origin", origin).Str("destination", destination).Str("mode", mode).Logger()
	logger.Info().Msg("Getting distance and travel time")

	if !t.maps.Available() {
		return mapsUnavailable
	}

	result, err := t.maps.DistanceMatrix(ctx, t.city.Qualify(origin), t.city.Qualify(destination), mode)
	if err != nil {
		logger.Error().Err(err).Msg("Distance matrix request failed")
		return "Sorry, an error occurred while calculating distance/time."
	}

	elementStatus := ""
	if len(result.Rows) > 0 && len(result.Rows[0].Elements) > 0 {
		elementStatus = result.Rows[0].Elements[0].Status
	}

	if result.Status == MapsStatusOK {
		switch elementStatus {
		case MapsStatusOK:
			element := result.Rows[0].Elements[0]
			return fmt.Sprintf("Estimated travel time from %s to %s by %s is %s (%s).",
				origin, destination, mode, element.Duration.Text, element.Distance.Text)
		case MapsStatusZeroResults, MapsStatusNotFound:
			return fmt.Sprintf("Could not calculate route between %s and %s by %s.", origin, destination, mode)
		}
	}

	logger.Warn().Str("status", result.Status).Str("element_status", elementStatus).Msg("Distance matrix returned an error status")
	return fmt.Sprintf("Sorry, couldn't calculate distance/time. Status: %s", result.Status)
}
