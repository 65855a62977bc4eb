package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// cityPresets are fallback coordinates used when the geocoding service is
// unreachable or finds nothing.
var cityPresets = map[string][2]float64{
	"paris":     {48.8566, 2.3522},
	"lyon":      {45.7640, 4.8357},
	"marseille": {43.2965, 5.3698},
	"evry":      {48.6239, 2.4289},
	"rennes":    {48.1173, -1.6778},
	"london":    {51.5074, -0.1278},
	"berlin":    {52.5200, 13.4050},
}

// cityStopwords are filler words stripped from free text before treating the
// remainder as a city name.
var cityStopwords = map[string]struct{}{
	"aujourd'hui": {}, "auj": {}, "demain": {}, "stp": {}, "svp": {}, "merci": {},
	"s'il": {}, "te": {}, "plait": {}, "plaît": {}, "moi": {}, "please": {}, "today": {},
	"meteo": {}, "météo": {}, "weather": {}, "temperature": {}, "température": {},
	"quelle": {}, "quel": {}, "est": {}, "la": {}, "le": {}, "de": {}, "du": {},
	"a": {}, "à": {}, "pour": {}, "il": {}, "fait": {}, "temps": {}, "donne": {},
	"donner": {}, "donnes": {}, "au": {}, "in": {}, "the": {}, "what": {}, "is": {},
	"whats": {}, "like": {},
}

var (
	// \b does not apply to accented letters, hence the explicit anchors.
	cityAfterPrepRe = regexp.MustCompile(`(?i)(?:^|\s)(?:à|a|au|pour|in)\s+([a-zA-ZÀ-ÖØ-öø-ÿ' -]{2,})`)
	cityTokenRe     = regexp.MustCompile(`[a-zA-ZÀ-ÖØ-öø-ÿ']{2,}`)
	strongPunctRe   = regexp.MustCompile(`[?,!.;:()\[\]{}\n\r]`)
)

// NormalizeCity extracts a city name from free text, e.g.
// "quelle est la météo à Paris aujourd'hui ?" becomes "Paris". Defaults to
// Paris when nothing usable remains.
func NormalizeCity(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "Paris"
	}

	candidate := text
	if m := cityAfterPrepRe.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}
	candidate = strongPunctRe.Split(candidate, 2)[0]

	var tokens []string
	for _, tok := range cityTokenRe.FindAllString(candidate, -1) {
		if _, stop := cityStopwords[strings.ToLower(tok)]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return "Paris"
	}
	return titleCaser.String(strings.ToLower(strings.Join(tokens, " ")))
}

// WeatherReport is the current weather for a resolved city.
type WeatherReport struct {
	City         string
	TemperatureC float64
	WindKmh      float64
}

// WeatherClient resolves a city and fetches current conditions from
// Open-Meteo, geocoding through Nominatim with a local preset fallback.
type WeatherClient struct {
	http       *http.Client
	userAgent  string
	geocodeURL string
	meteoURL   string
	logger     *zap.Logger
}

// NewWeatherClient creates a weather client with a bounded request timeout.
func NewWeatherClient(timeout time.Duration, userAgent string, logger *zap.Logger) *WeatherClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherClient{
		http:       &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		geocodeURL: "https://nominatim.openstreetmap.org/search",
		meteoURL:   "https://api.open-meteo.com/v1/forecast",
		logger:     logger,
	}
}

// Current resolves the city named in free text and returns its current
// weather.
func (c *WeatherClient) Current(ctx context.Context, freeText string) (WeatherReport, error) {
	city := NormalizeCity(freeText)

	lat, lon, ok := c.geocode(ctx, city)
	if !ok {
		preset, found := cityPresets[strings.ToLower(city)]
		if !found {
			return WeatherReport{}, fmt.Errorf("city %q not found", city)
		}
		lat, lon = preset[0], preset[1]
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current_weather", "true")

	var payload struct {
		CurrentWeather *struct {
			Temperature float64 `json:"temperature"`
			WindSpeed   float64 `json:"windspeed"`
		} `json:"current_weather"`
	}
	if err := c.getJSON(ctx, c.meteoURL+"?"+q.Encode(), &payload); err != nil {
		return WeatherReport{}, fmt.Errorf("fetch weather: %w", err)
	}
	if payload.CurrentWeather == nil {
		return WeatherReport{}, fmt.Errorf("no current weather for %q", city)
	}

	return WeatherReport{
		City:         city,
		TemperatureC: payload.CurrentWeather.Temperature,
		WindKmh:      payload.CurrentWeather.WindSpeed,
	}, nil
}

// geocode resolves a city through Nominatim; false means unresolved, which
// is not an error at this level.
func (c *WeatherClient) geocode(ctx context.Context, city string) (lat, lon float64, ok bool) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("format", "json")
	q.Set("limit", "1")

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := c.getJSON(ctx, c.geocodeURL+"?"+q.Encode(), &results); err != nil {
		c.logger.Debug("geocoding failed, trying presets", zap.String("city", city), zap.Error(err))
		return 0, 0, false
	}
	if len(results) == 0 {
		return 0, 0, false
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func (c *WeatherClient) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
