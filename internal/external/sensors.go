package external

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"frostwatch/internal/types"
)

// SensorClientConfig holds the configuration for creating a SensorClient.
type SensorClientConfig struct {
	ServerURL     string
	ApplicationID string
	APIKey        types.SecretString
	// DeviceIDs limits results to the listed nodes; empty accepts all.
	DeviceIDs []string
	Logger    *slog.Logger
}

// SensorClient implements types.SensorSource against the LoRaWAN network
// server's storage integration API. The API streams one JSON object per
// line; each object wraps an uplink message with a decoded payload.
type SensorClient struct {
	base          *BaseClient
	serverURL     string
	applicationID string
	apiKey        types.SecretString
	allowDevices  map[string]struct{}
	logger        *slog.Logger
}

// NewSensorClient creates a SensorClient. The httpClient timeout bounds each
// storage API call.
func NewSensorClient(httpClient *http.Client, cfg SensorClientConfig) *SensorClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var allow map[string]struct{}
	if len(cfg.DeviceIDs) > 0 {
		allow = make(map[string]struct{}, len(cfg.DeviceIDs))
		for _, id := range cfg.DeviceIDs {
			allow[id] = struct{}{}
		}
	}

	return &SensorClient{
		base: NewBaseClient(
			httpClient,
			"sensor-storage",
			DefaultRetryPolicy(),
			"FrostWatch/1.0",
			types.ErrCodeUpstreamSensor,
		),
		serverURL:     strings.TrimSuffix(cfg.ServerURL, "/"),
		applicationID: cfg.ApplicationID,
		apiKey:        cfg.APIKey,
		allowDevices:  allow,
		logger:        logger,
	}
}

// storedUplink mirrors the storage API's per-line message structure, reduced
// to the fields FrostWatch consumes.
type storedUplink struct {
	Result struct {
		EndDeviceIDs struct {
			DeviceID string `json:"device_id"`
		} `json:"end_device_ids"`
		UplinkMessage struct {
			ReceivedAt     time.Time      `json:"received_at"`
			DecodedPayload decodedPayload `json:"decoded_payload"`
		} `json:"uplink_message"`
	} `json:"result"`
}

// decodedPayload accepts both the Spanish field names emitted by the
// deployed nodes and the English equivalents used by newer firmware.
type decodedPayload struct {
	TemperaturaC float64 `json:"temperatura_c"`
	Temperature  float64 `json:"temperature"`
	HumedadPct   float64 `json:"humedad_pct"`
	Humidity     float64 `json:"humidity"`
	VientoMS     float64 `json:"viento_ms"`
	WindSpeed    float64 `json:"wind_speed"`
}

func (p decodedPayload) temperature() float64 { return firstNonZero(p.TemperaturaC, p.Temperature) }
func (p decodedPayload) humidity() float64    { return firstNonZero(p.HumedadPct, p.Humidity) }
func (p decodedPayload) windSpeed() float64   { return firstNonZero(p.VientoMS, p.WindSpeed) }

func firstNonZero(a, b float64) float64 {
	if a != 0 {
		return a
	}
	return b
}

// FetchReadings retrieves the readings received inside the window, ordered
// by timestamp ascending. An empty result is not an error.
//
// The storage API selects by a trailing "last=<hours>h" parameter rather
// than an explicit range, so the window is widened to whole hours and
// re-filtered locally against the exact bounds.
func (c *SensorClient) FetchReadings(ctx context.Context, window types.TimeWindow) ([]types.Reading, error) {
	hours := int(math.Ceil(window.Duration().Hours()))
	if hours < 1 {
		hours = 1
	}

	endpoint := fmt.Sprintf("%s/api/v3/as/applications/%s/packages/storage/uplink_message",
		c.serverURL, url.PathEscape(c.applicationID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build storage API request", err)
	}
	q := req.URL.Query()
	q.Set("last", fmt.Sprintf("%dh", hours))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+c.apiKey.Unmask())
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamSensor,
			fmt.Sprintf("storage API returned status %d", resp.StatusCode),
			nil,
		)
	}

	readings, skipped := c.parseStream(resp.Body, window)

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})

	c.logger.DebugContext(ctx, "fetched sensor readings",
		"count", len(readings),
		"skipped", skipped,
		"hours", hours,
	)
	return readings, nil
}

// parseStream decodes the line-delimited JSON body into readings, dropping
// malformed lines, messages from devices outside the allow list, and
// readings outside the exact window.
func (c *SensorClient) parseStream(body interface{ Read([]byte) (int, error) }, window types.TimeWindow) ([]types.Reading, int) {
	var readings []types.Reading
	skipped := 0

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var msg storedUplink
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			skipped++
			continue
		}

		deviceID := msg.Result.EndDeviceIDs.DeviceID
		receivedAt := msg.Result.UplinkMessage.ReceivedAt
		if deviceID == "" || receivedAt.IsZero() {
			skipped++
			continue
		}
		if c.allowDevices != nil {
			if _, ok := c.allowDevices[deviceID]; !ok {
				skipped++
				continue
			}
		}
		if !window.Contains(receivedAt) {
			skipped++
			continue
		}

		payload := msg.Result.UplinkMessage.DecodedPayload
		readings = append(readings, types.Reading{
			Temperature: payload.temperature(),
			Humidity:    payload.humidity(),
			WindSpeed:   payload.windSpeed(),
			Timestamp:   receivedAt.UTC(),
			DeviceID:    deviceID,
		})
	}

	return readings, skipped
}
