package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MauriceOS/snaktox-dispatch/internal/config"
	"github.com/MauriceOS/snaktox-dispatch/internal/models"
)

const (
	twilioBaseURL        = "https://api.twilio.com/2010-04-01"
	africasTalkingMsgURL = "https://api.africastalking.com/version1/messaging"
	adapterUserAgent     = "snaktox-dispatch/1.0"
)

// classifyStatus maps an HTTP response code to the dispatch error taxonomy.
// Client errors mean the recipient is unusable; everything else is transient.
func classifyStatus(code int) error {
	if code >= 200 && code < 300 {
		return nil
	}
	if code == http.StatusBadRequest || code == http.StatusNotFound || code == http.StatusUnprocessableEntity {
		return models.ErrInvalidRecipient
	}
	return models.ErrChannelUnavailable
}

// TwilioAdapter delivers SMS through the Twilio messaging API.
type TwilioAdapter struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewTwilioAdapter(cfg *config.Config, logger *logrus.Logger) *TwilioAdapter {
	return &TwilioAdapter{
		accountSID: cfg.TwilioAccountSID,
		authToken:  cfg.TwilioAuthToken,
		from:       cfg.TwilioPhoneNumber,
		baseURL:    twilioBaseURL,
		httpClient: &http.Client{Timeout: cfg.NotifyTimeout},
		logger:     logger,
	}
}

func (a *TwilioAdapter) Channel() models.Channel {
	return models.ChannelSMS
}

func (a *TwilioAdapter) Send(ctx context.Context, recipient, message string) error {
	form := url.Values{}
	form.Set("From", a.from)
	form.Set("To", recipient)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", a.baseURL, a.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", adapterUserAgent)
	req.SetBasicAuth(a.accountSID, a.authToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: %w: %v", models.ErrChannelUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return fmt.Errorf("twilio: status %d: %w", resp.StatusCode, err)
	}

	a.logger.WithFields(logrus.Fields{
		"channel":   a.Channel(),
		"recipient": recipient,
	}).Debug("SMS delivered")
	return nil
}

// AfricasTalkingAdapter delivers chat-class messages through the
// Africa's Talking messaging API.
type AfricasTalkingAdapter struct {
	apiKey     string
	username   string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewAfricasTalkingAdapter(cfg *config.Config, logger *logrus.Logger) *AfricasTalkingAdapter {
	return &AfricasTalkingAdapter{
		apiKey:     cfg.AfricasTalkingKey,
		username:   cfg.AfricasTalkingUser,
		baseURL:    africasTalkingMsgURL,
		httpClient: &http.Client{Timeout: cfg.NotifyTimeout},
		logger:     logger,
	}
}

func (a *AfricasTalkingAdapter) Channel() models.Channel {
	return models.ChannelChat
}

func (a *AfricasTalkingAdapter) Send(ctx context.Context, recipient, message string) error {
	form := url.Values{}
	form.Set("username", a.username)
	form.Set("to", recipient)
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("africastalking: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", a.apiKey)
	req.Header.Set("User-Agent", adapterUserAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("africastalking: %w: %v", models.ErrChannelUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return fmt.Errorf("africastalking: status %d: %w", resp.StatusCode, err)
	}

	a.logger.WithFields(logrus.Fields{
		"channel":   a.Channel(),
		"recipient": recipient,
	}).Debug("Chat message delivered")
	return nil
}

// EmailAdapter delivers email through an HTTP mail API.
type EmailAdapter struct {
	apiURL     string
	apiKey     string
	from       string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewEmailAdapter(cfg *config.Config, logger *logrus.Logger) *EmailAdapter {
	return &EmailAdapter{
		apiURL:     cfg.EmailAPIURL,
		apiKey:     cfg.EmailAPIKey,
		from:       cfg.EmailFrom,
		httpClient: &http.Client{Timeout: cfg.NotifyTimeout},
		logger:     logger,
	}
}

func (a *EmailAdapter) Channel() models.Channel {
	return models.ChannelEmail
}

func (a *EmailAdapter) Send(ctx context.Context, recipient, message string) error {
	if !isEmailShaped(recipient) {
		return fmt.Errorf("email: %w: %q", models.ErrInvalidRecipient, recipient)
	}

	body, err := json.Marshal(map[string]string{
		"from":    a.from,
		"to":      recipient,
		"subject": "SnaKTox emergency notification",
		"text":    message,
	})
	if err != nil {
		return fmt.Errorf("email: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("email: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("User-Agent", adapterUserAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: %w: %v", models.ErrChannelUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return fmt.Errorf("email: status %d: %w", resp.StatusCode, err)
	}

	a.logger.WithFields(logrus.Fields{
		"channel":   a.Channel(),
		"recipient": recipient,
	}).Debug("Email delivered")
	return nil
}

// NewSMSClassNotifier picks the SMS-class provider from configuration.
func NewSMSClassNotifier(cfg *config.Config, logger *logrus.Logger) Notifier {
	if cfg.SMSProvider == "africastalking" {
		return NewAfricasTalkingAdapter(cfg, logger)
	}
	return NewTwilioAdapter(cfg, logger)
}
