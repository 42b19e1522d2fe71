package external

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"frostwatch/internal/types"
)

// twilioAPIBase is the default Twilio API base URL. Overridable in tests via
// TwilioClientConfig.BaseURL.
const twilioAPIBase = "https://api.twilio.com"

// TwilioClientConfig holds the configuration for creating a TwilioClient.
type TwilioClientConfig struct {
	AccountSID string
	AuthToken  types.SecretString
	// FromNumber is the WhatsApp-enabled sender, e.g. "+14155238886".
	FromNumber string
	BaseURL    string // Override for testing; defaults to twilioAPIBase
	Logger     *slog.Logger
}

// TwilioClient implements types.NotificationSender by posting to the Twilio
// Messages API over BaseClient, inheriting circuit breaking, retries, and
// error mapping. Messages are delivered on the WhatsApp channel.
type TwilioClient struct {
	base       *BaseClient
	accountSID string
	authToken  types.SecretString
	fromNumber string
	baseURL    string
	logger     *slog.Logger
}

// NewTwilioClient creates a TwilioClient. The httpClient timeout bounds each
// send.
func NewTwilioClient(httpClient *http.Client, cfg TwilioClientConfig) *TwilioClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = twilioAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TwilioClient{
		base: NewBaseClient(
			httpClient,
			"twilio",
			RetryPolicy{
				MaxRetries: 2,
				MinWait:    500 * time.Millisecond,
				MaxWait:    5 * time.Second,
			},
			"FrostWatch/1.0",
			types.ErrCodeUpstreamNotifier,
		),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger,
	}
}

// Send delivers one frost alert to one recipient. displayName may be empty,
// in which case the greeting is omitted.
func (c *TwilioClient) Send(ctx context.Context, p types.Prediction, phoneNumber, displayName string) error {
	form := url.Values{}
	form.Set("From", "whatsapp:"+c.fromNumber)
	form.Set("To", "whatsapp:"+phoneNumber)
	form.Set("Body", MessageForPrediction(p, displayName))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		c.baseURL, url.PathEscape(c.accountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build Twilio request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return types.NewAppError(
			types.ErrCodeUpstreamNotifier,
			fmt.Sprintf("Twilio returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			nil,
		)
	}

	c.logger.InfoContext(ctx, "whatsapp alert sent",
		"to", phoneNumber,
		"frost_level", string(p.FrostLevel),
	)
	return nil
}

// MessageForPrediction renders the alert text for a prediction, varying by
// frost level. displayName, when non-empty, prefixes the message with a
// greeting.
func MessageForPrediction(p types.Prediction, displayName string) string {
	var body string
	switch p.FrostLevel {
	case types.FrostLevelExpected:
		body = fmt.Sprintf(
			"FROST ALERT\n\nFrost is expected tonight!\nProbability: %.1f%%\n\nPlease take protective measures for your crops.",
			p.Probability*100)
	case types.FrostLevelPossible:
		body = fmt.Sprintf(
			"FROST WARNING\n\nPossible frost conditions tonight.\nProbability: %.1f%%\n\nMonitor conditions and be prepared.",
			p.Probability*100)
	case types.FrostLevelNone:
		body = fmt.Sprintf(
			"NO FROST EXPECTED\n\nNo frost expected tonight.\nProbability: %.1f%%\n\nConditions look favorable!",
			p.Probability*100)
	default:
		body = "Weather update available."
	}

	if displayName != "" {
		return fmt.Sprintf("Hello %s,\n\n%s", displayName, body)
	}
	return body
}
