package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/funlifew/push-notify-api/internal/config"
	"github.com/funlifew/push-notify-api/internal/models"
)

// requestTimeout bounds connect plus request for every relay call. The client
// never retries; retry policy lives entirely in the dispatch scan's attempt
// counter.
const requestTimeout = 30 * time.Second

// Client speaks the relay's multipart protocol. One instance is shared and
// injected wherever delivery is needed; there is no package-level state.
type Client struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
	icons      *IconStore
	logger     zerolog.Logger
}

// GroupResult is the relay's per-endpoint verdict for a group send.
type GroupResult struct {
	Success []string `json:"success"`
	Error   []string `json:"error"`
}

// TokenResponse is returned by the out-of-band token bootstrap call.
type TokenResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

type subscriptionKeys struct {
	Auth   string `json:"auth"`
	P256dh string `json:"p256dh"`
}

type subscriptionInfo struct {
	Endpoint string           `json:"endpoint"`
	Keys     subscriptionKeys `json:"keys"`
}

func NewClient(cfg config.RelayConfig, icons *IconStore, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		adminToken: cfg.Token,
		httpClient: &http.Client{Timeout: requestTimeout},
		icons:      icons,
		logger:     logger.With().Str("component", "gateway").Logger(),
	}
}

func (c *Client) checkConfig() error {
	if c.baseURL == "" {
		return errors.New("relay base URL is not configured")
	}
	if c.adminToken == "" {
		return errors.New("relay admin token is not configured")
	}
	return nil
}

// SendSingle delivers one notification to one endpoint via send/single/.
// The call succeeds iff the relay answers with a 2xx status; the response
// body is irrelevant to the outcome.
func (c *Client) SendSingle(ctx context.Context, target models.PushTarget, payload models.Payload) error {
	if err := c.checkConfig(); err != nil {
		return err
	}

	info, err := json.Marshal(subscriptionInfo{
		Endpoint: target.Endpoint,
		Keys:     subscriptionKeys{Auth: target.AuthKey, P256dh: target.P256dhKey},
	})
	if err != nil {
		return errors.Wrap(err, "encode subscription info")
	}

	body, contentType, err := c.encodeForm("subscription_info", info, payload)
	if err != nil {
		return err
	}

	status, respBody, err := c.post(ctx, "send/single/", body, contentType)
	if err != nil {
		return errors.Wrap(err, "relay request failed")
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("relay returned status %d: %s", status, truncate(respBody, 200))
	}

	// A 2xx body that is not JSON still counts as delivered.
	var parsed map[string]interface{}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.logger.Debug().Int("status", status).Msg("relay response was not JSON")
	}
	return nil
}

// SendGroup delivers one notification to many endpoints via send/group/ and
// returns the relay's success/error endpoint arrays. A 2xx response whose
// body cannot be parsed yields an empty result (zero successes) rather than
// an error, since no endpoint can be attributed either way.
func (c *Client) SendGroup(ctx context.Context, targets []models.PushTarget, payload models.Payload) (GroupResult, error) {
	if err := c.checkConfig(); err != nil {
		return GroupResult{}, err
	}

	infos := make([]subscriptionInfo, 0, len(targets))
	for _, t := range targets {
		infos = append(infos, subscriptionInfo{
			Endpoint: t.Endpoint,
			Keys:     subscriptionKeys{Auth: t.AuthKey, P256dh: t.P256dhKey},
		})
	}
	infoList, err := json.Marshal(infos)
	if err != nil {
		return GroupResult{}, errors.Wrap(err, "encode subscription info list")
	}

	body, contentType, err := c.encodeForm("subscription_info_list", infoList, payload)
	if err != nil {
		return GroupResult{}, err
	}

	status, respBody, err := c.post(ctx, "send/group/", body, contentType)
	if err != nil {
		return GroupResult{}, errors.Wrap(err, "relay request failed")
	}
	if status < 200 || status >= 300 {
		return GroupResult{}, fmt.Errorf("relay returned status %d: %s", status, truncate(respBody, 200))
	}

	var result GroupResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.logger.Warn().Int("status", status).Msg("relay group response was not JSON; treating as zero successes")
		return GroupResult{}, nil
	}
	return result, nil
}

// GenerateToken performs the one-shot token/generate/ bootstrap call. Not
// part of the delivery hot path; run at install time.
func (c *Client) GenerateToken(ctx context.Context) (TokenResponse, error) {
	if c.baseURL == "" {
		return TokenResponse{}, errors.New("relay base URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"token/generate/", nil)
	if err != nil {
		return TokenResponse{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenResponse{}, errors.Wrap(err, "relay request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenResponse{}, errors.Wrap(err, "read relay response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TokenResponse{}, fmt.Errorf("relay returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var token TokenResponse
	if err := json.Unmarshal(respBody, &token); err != nil {
		return TokenResponse{}, errors.Wrap(err, "decode token response")
	}
	if token.Token == "" {
		return TokenResponse{}, errors.New("relay response contained no token")
	}
	return token, nil
}

// encodeForm builds the multipart body shared by single and group sends:
// the recipient field, admin_token, title, body, optional url and optional
// icon attachment.
func (c *Client) encodeForm(recipientField string, recipientJSON []byte, payload models.Payload) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := []struct{ name, value string }{
		{recipientField, string(recipientJSON)},
		{"admin_token", c.adminToken},
		{"title", payload.Title},
		{"body", payload.Body},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", errors.Wrapf(err, "write field %s", f.name)
		}
	}
	if payload.URL != "" {
		if err := w.WriteField("url", payload.URL); err != nil {
			return nil, "", errors.Wrap(err, "write field url")
		}
	}

	if payload.IconPath != "" {
		data, filename, err := c.icons.Open(payload.IconPath)
		if err != nil {
			// A missing icon degrades the notification, it does not fail it.
			c.logger.Warn().Err(err).Str("icon_path", payload.IconPath).Msg("icon not found, sending without it")
		} else {
			header := textproto.MIMEHeader{}
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="icon"; filename=%q`, filename))
			header.Set("Content-Type", iconMIMEType(filename, data))
			part, err := w.CreatePart(header)
			if err != nil {
				return nil, "", errors.Wrap(err, "create icon part")
			}
			if _, err := part.Write(data); err != nil {
				return nil, "", errors.Wrap(err, "write icon part")
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close multipart writer")
	}
	return buf, w.FormDataContentType(), nil
}

func (c *Client) post(ctx context.Context, path string, body *bytes.Buffer, contentType string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
