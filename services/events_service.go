package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/MrCactuss/Ai-Powered-App-Project/models"
)

// Selectors for the calendar listing. The page is not a versioned API, so
// these break whenever the site's markup changes.
const (
	eventItemSelector     = ".events.list li"
	eventTitleSelector    = ".title"
	eventDateSelector     = ".event-date"
	eventLocationSelector = ".event-place"
	eventFeeSelector      = ".event-fee"

	maxEvents = 5
)

// EventsService scrapes the city event calendar.
type EventsService struct {
	client  *resty.Client
	baseURL string
	city    models.City
	clock   Clock
}

func NewEventsService(baseURL, userAgent string, timeout time.Duration, city models.City, clock Clock) *EventsService {
	if clock == nil {
		clock = SystemClock
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)

	return &EventsService{
		client:  client,
		baseURL: baseURL,
		city:    city,
		clock:   clock,
	}
}

// ListingURL is the calendar page for one date window.
func (s *EventsService) ListingURL(window models.DateWindow) string {
	return fmt.Sprintf("%spage:1,date_from:%s,date_until:%s,a:f", s.baseURL, window.FromString(), window.UntilString())
}

// GetEvents lists up to five events in the relative dateRange. category is
// accepted for the assistant's benefit; the listing page cannot filter by it.
func (s *EventsService) GetEvents(ctx context.Context, dateRange, category string) string {
	window := EventDateWindow(s.clock(), dateRange)
	from, until := window.FromString(), window.UntilString()
	target := s.ListingURL(window)

	logger := log.With().Str("tool", ToolGetEvents).Str("date_range", dateRange).Str("category", category).Logger()
	logger.Info().Str("from", from).Str("until", until).Str("url", target).Msg("Fetching events")

	resp, err := s.client.R().SetContext(ctx).Get(target)
	if err != nil {
		logger.Error().Err(err).Msg("Error fetching event page")
		return fmt.Sprintf("Sorry, I couldn't connect to the %s event calendar right now.", s.city.Name)
	}
	if resp.IsError() {
		logger.Error().Int("status_code", resp.StatusCode()).Msg("Event page returned an error status")
		return fmt.Sprintf("Sorry, I couldn't connect to the %s event calendar right now.", s.city.Name)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		logger.Error().Err(err).Msg("Error parsing event page")
		return "Sorry, an error occurred while processing events."
	}

	items := doc.Find(eventItemSelector)
	logger.Debug().Int("items", items.Length()).Msg("Matched event list items")
	if items.Length() == 0 {
		return fmt.Sprintf("No event list items found on the calendar page for %s to %s.", from, until)
	}

	events := extractEvents(items.Slice(0, min(items.Length(), maxEvents)))
	if len(events) == 0 {
		return fmt.Sprintf("Found event list items but couldn't extract details for %s to %s.", from, until)
	}

	lines := []string{fmt.Sprintf("Upcoming Events in %s (%s to %s):", s.city.Name, from, until)}
	for i, ev := range events {
		fee := ""
		if ev.Fee != "" {
			fee = fmt.Sprintf(" (%s)", ev.Fee)
		}
		lines = append(lines, fmt.Sprintf("%d. %s [%s] at %s%s", i+1, ev.Title, ev.Date, ev.Location, fee))
	}
	if items.Length() > maxEvents {
		lines = append(lines, "...")
	}
	return strings.Join(lines, "\n")
}

// extractEvents reads the positional sub-elements of each list item. Items
// without a title are skipped.
func extractEvents(items *goquery.Selection) []models.Event {
	var events []models.Event
	items.Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find(eventTitleSelector).First().Text())
		if title == "" {
			return
		}
		events = append(events, models.Event{
			Title:    title,
			Date:     orNA(spacedText(item.Find(eventDateSelector).First())),
			Location: orNA(strings.TrimSpace(item.Find(eventLocationSelector).First().Text())),
			Fee:      strings.TrimSpace(item.Find(eventFeeSelector).First().Text()),
		})
	})
	return events
}

// spacedText joins the trimmed text nodes under sel with single spaces, so
// "<span>12.05</span><span>18:00</span>" reads "12.05 18:00".
func spacedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
