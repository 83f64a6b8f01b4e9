package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultRealtimeModel is the peer model requested when negotiation
// does not specify one.
const DefaultRealtimeModel = "gpt-4o-realtime-preview-2024-12-17"

// SessionCredential is the short-lived credential minted for one live
// session.
type SessionCredential struct {
	SessionID    string
	ClientSecret string
	Model        string
	ExpiresAt    time.Time
}

// NegotiationConfig configures a NegotiationClient.
type NegotiationConfig struct {
	// BaseURL is the peer's REST endpoint, e.g. https://api.openai.com/v1.
	BaseURL string

	// APIKey authenticates session minting.
	APIKey string

	// Model overrides DefaultRealtimeModel when set.
	Model string

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// NegotiationClient mints realtime session credentials and relays SDP
// offers for peers negotiated over WebRTC instead of websocket.
type NegotiationClient struct {
	cfg    NegotiationConfig
	client *http.Client
	logger *zap.Logger
}

// NewNegotiationClient validates the config and returns a client.
func NewNegotiationClient(cfg NegotiationConfig) (*NegotiationClient, error) {
	if cfg.APIKey == "" {
		return nil, NewNegotiationError("API key is required", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultRealtimeModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &NegotiationClient{cfg: cfg, client: cfg.HTTPClient, logger: cfg.Logger}, nil
}

// CreateSession mints a session credential with the given voice and
// session-level instructions.
func (n *NegotiationClient) CreateSession(ctx context.Context, voice, instructions string) (*SessionCredential, error) {
	body := map[string]any{
		"model": n.cfg.Model,
		"voice": voice,
	}
	if instructions != "" {
		body["instructions"] = instructions
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, NewNegotiationError("encode session request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.cfg.BaseURL+"/realtime/sessions", bytes.NewReader(payload))
	if err != nil {
		return nil, NewNegotiationError("build session request", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, NewNegotiationError("session request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, NewNegotiationError("read session response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewNegotiationError(
			fmt.Sprintf("session endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))), nil)
	}

	var parsed struct {
		ID           string `json:"id"`
		ClientSecret struct {
			Value     string `json:"value"`
			ExpiresAt int64  `json:"expires_at"`
		} `json:"client_secret"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, NewNegotiationError("decode session response", err)
	}
	if parsed.ClientSecret.Value == "" {
		return nil, NewNegotiationError("session response missing client secret", nil)
	}

	cred := &SessionCredential{
		SessionID:    parsed.ID,
		ClientSecret: parsed.ClientSecret.Value,
		Model:        n.cfg.Model,
	}
	if parsed.ClientSecret.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(parsed.ClientSecret.ExpiresAt, 0)
	}
	n.logger.Debug("session credential minted", zap.String("session_id", cred.SessionID))
	return cred, nil
}

// RelayOffer posts an SDP offer to the realtime endpoint and returns
// the answer SDP.
func (n *NegotiationClient) RelayOffer(ctx context.Context, offerSDP, clientSecret string) (string, error) {
	url := fmt.Sprintf("%s/realtime?model=%s", n.cfg.BaseURL, n.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(offerSDP))
	if err != nil {
		return "", NewNegotiationError("build offer request", err)
	}
	req.Header.Set("Authorization", "Bearer "+clientSecret)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", NewNegotiationError("offer relay failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", NewNegotiationError("read answer", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", NewNegotiationError(
			fmt.Sprintf("offer relay returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))), nil)
	}
	return string(data), nil
}

// ChannelURL returns the websocket endpoint and headers for dialing the
// realtime channel with a minted credential.
func (n *NegotiationClient) ChannelURL(cred *SessionCredential) (string, http.Header) {
	base := strings.TrimPrefix(n.cfg.BaseURL, "https://")
	base = strings.TrimPrefix(base, "http://")
	url := fmt.Sprintf("wss://%s/realtime?model=%s", base, cred.Model)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cred.ClientSecret)
	header.Set("OpenAI-Beta", "realtime=v1")
	return url, header
}
