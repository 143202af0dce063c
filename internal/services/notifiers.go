package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/models"
)

// ErrNoRecipient is returned when an alert has nowhere to go.
var ErrNoRecipient = errors.New("alert recipient is required")

// Notifier delivers rendered alerts over one channel.
type Notifier interface {
	Channel() models.AlertChannel
	Send(ctx context.Context, recipient string, msg AlertMessage) error
}

// TelegramNotifier sends alerts through the Telegram Bot API.
type TelegramNotifier struct {
	bot           *bot.Bot
	defaultChatID string
	logger        *logrus.Logger
}

// NewTelegramNotifier creates a notifier for token. The bot identity is not
// checked here; call Validate for that. Extra options are passed to bot.New.
func NewTelegramNotifier(token, defaultChatID string, logger *logrus.Logger, opts ...bot.Option) (*TelegramNotifier, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, defaultChatID: defaultChatID, logger: logger}, nil
}

// Channel implements Notifier.
func (n *TelegramNotifier) Channel() models.AlertChannel {
	return models.ChannelTelegram
}

// Send posts msg as Markdown to chatID, or to the default chat when chatID is
// empty.
func (n *TelegramNotifier) Send(ctx context.Context, chatID string, msg AlertMessage) error {
	if chatID == "" {
		chatID = n.defaultChatID
	}
	if chatID == "" {
		return ErrNoRecipient
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    telegramChatID(chatID),
		Text:      msg.Text,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// Validate checks the token against the Bot API and returns the bot username.
func (n *TelegramNotifier) Validate(ctx context.Context) (string, error) {
	me, err := n.bot.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("telegram getMe failed: %w", err)
	}
	return me.Username, nil
}

// telegramChatID passes numeric ids as integers and channel usernames
// ("@oddsradar") as strings.
func telegramChatID(chatID string) any {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return id
	}
	return chatID
}

var emailTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>{{.Title}}</h2>
  <p><strong>{{.Event}}</strong>{{if .Sport}} &middot; {{.Sport}}{{end}}</p>
  <p>Market: {{.Market}}<br>Profit: <strong>{{.Profit}}</strong><br>Quality: {{.Grade}} ({{.Score}}/100)<br>Latency risk: {{.Risk}}</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><th align="left">Outcome</th><th align="left">Bookmaker</th><th align="right">Odds</th><th align="right">Stake</th></tr>
    {{range .Legs}}<tr><td>{{.Outcome}}</td><td>{{.Bookmaker}}</td><td align="right">{{printf "%.2f" .Odds}}</td><td align="right">${{.Stake.StringFixed 2}}</td></tr>
    {{end}}
  </table>
  <p>Total stake ${{.Total}}, expected profit ${{.ExpectedProfit}}</p>
</body>
</html>`))

type emailView struct {
	Title          string
	Event          string
	Sport          string
	Market         string
	Profit         string
	Grade          string
	Score          int
	Risk           string
	Legs           []StakeLeg
	Total          string
	ExpectedProfit string
}

// EmailNotifier sends alerts through the Resend email API.
type EmailNotifier struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

// NewEmailNotifier creates a Resend notifier. baseURL defaults to
// https://api.resend.com.
func NewEmailNotifier(apiKey, from, baseURL string, timeout time.Duration) (*EmailNotifier, error) {
	if apiKey == "" {
		return nil, errors.New("resend api key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EmailNotifier{
		apiKey:  apiKey,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Channel implements Notifier.
func (n *EmailNotifier) Channel() models.AlertChannel {
	return models.ChannelEmail
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// Send emails msg to address.
func (n *EmailNotifier) Send(ctx context.Context, address string, msg AlertMessage) error {
	if address == "" {
		return ErrNoRecipient
	}
	html, err := renderEmailHTML(msg)
	if err != nil {
		return err
	}

	body := resendRequest{
		From:    n.from,
		To:      []string{address},
		Subject: msg.Title,
		HTML:    html,
		Text:    strings.ReplaceAll(msg.Text, "*", ""),
	}
	return postJSON(ctx, n.client, n.baseURL+"/emails", body, map[string]string{
		"Authorization": "Bearer " + n.apiKey,
	})
}

// Validate checks the API key by listing the account's sending domains.
func (n *EmailNotifier) Validate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/domains", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	return doRequest(n.client, req)
}

func renderEmailHTML(msg AlertMessage) (string, error) {
	o := msg.Opportunity
	view := emailView{
		Title:          msg.Title,
		Event:          o.Title(),
		Sport:          o.SportKey(),
		Market:         o.MarketType,
		Profit:         fmt.Sprintf("%.2f%%", o.ProfitPercentage*100),
		Grade:          string(o.QualityGrade),
		Score:          o.QualityScore,
		Risk:           string(o.LatencyRisk),
		Legs:           msg.Plan.Legs,
		Total:          msg.Plan.TotalStake.StringFixed(2),
		ExpectedProfit: msg.Plan.ExpectedProfit.StringFixed(2),
	}
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render email: %w", err)
	}
	return buf.String(), nil
}

// WebhookPayload is the JSON body posted to webhook subscribers.
type WebhookPayload struct {
	Timestamp time.Time   `json:"timestamp"`
	Type      string      `json:"type"`
	Data      WebhookData `json:"data"`
}

// WebhookData carries the opportunity and its stake plan.
type WebhookData struct {
	Opportunity *models.Opportunity `json:"opportunity"`
	StakePlan   StakePlan           `json:"stake_plan"`
	Message     string              `json:"message"`
}

// WebhookNotifier posts alerts as JSON to a URL.
type WebhookNotifier struct {
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{client: &http.Client{Timeout: timeout}}
}

// Channel implements Notifier.
func (n *WebhookNotifier) Channel() models.AlertChannel {
	return models.ChannelWebhook
}

// Send posts msg to target.
func (n *WebhookNotifier) Send(ctx context.Context, target string, msg AlertMessage) error {
	if target == "" {
		return ErrNoRecipient
	}
	if err := ValidateWebhookURL(target); err != nil {
		return err
	}
	payload := WebhookPayload{
		Timestamp: msg.CreatedAt,
		Type:      "arbitrage_opportunity",
		Data: WebhookData{
			Opportunity: msg.Opportunity,
			StakePlan:   msg.Plan,
			Message:     msg.Text,
		},
	}
	return postJSON(ctx, n.client, target, payload, nil)
}

// ValidateWebhookURL accepts absolute http and https URLs.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid webhook url %q: must be an absolute http(s) url", raw)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, target string, body any, headers map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doRequest(client, req)
}

func doRequest(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s responded %d: %s", req.URL.Host, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
