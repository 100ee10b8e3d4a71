package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cassiopeia/models"
)

// Client holt JSON-Ressourcen von Upstream-Diensten. Jeder Abruf hat ein
// hartes Timeout; Fehler werden nie nach oben geworfen, sondern im Ergebnis
// kodiert. Aufrufer behandeln OK=false als "Default-Daten verwenden".
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// NewClient erstellt einen Client mit dem gegebenen Timeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// FetchJSON führt einen GET aus und liefert immer ein wohlgeformtes Ergebnis.
// Netzwerkfehler, Nicht-2xx-Status und kaputte Bodies ergeben OK=false mit
// leerem Objekt-Body.
func (c *Client) FetchJSON(ctx context.Context, url string, headers map[string]string) models.UpstreamResult {
	status, data, err := c.get(ctx, url, headers)
	if err != nil {
		c.logger.Warn("Upstream-Abruf fehlgeschlagen", zap.String("url", url), zap.Error(err))
		return models.UpstreamResult{Status: status, Body: map[string]any{}, ErrorMessage: err.Error()}
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("Upstream-Status nicht 2xx", zap.String("url", url), zap.Int("status", status))
		return models.UpstreamResult{Status: status, Body: map[string]any{}, ErrorMessage: fmt.Sprintf("upstream status %d", status)}
	}
	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		c.logger.Warn("Upstream-Body nicht dekodierbar", zap.String("url", url), zap.Error(err))
		return models.UpstreamResult{Status: status, Body: map[string]any{}, ErrorMessage: "malformed upstream body"}
	}
	return models.UpstreamResult{OK: true, Status: status, Body: body}
}

// ProxyRaw ist der Passthrough-Modus für reine API-Spiegel-Endpoints.
// Jeder Upstream-Status wird akzeptiert; ist der Body kein Objekt oder Array,
// wird {} substituiert, schlägt der Abruf selbst fehl {"error":"upstream"}.
func (c *Client) ProxyRaw(ctx context.Context, url string) any {
	_, data, err := c.get(ctx, url, nil)
	if err != nil {
		c.logger.Warn("Proxy-Abruf fehlgeschlagen", zap.String("url", url), zap.Error(err))
		return map[string]any{"error": "upstream"}
	}
	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		return map[string]any{}
	}
	switch body.(type) {
	case map[string]any, []any:
		return body
	default:
		return map[string]any{}
	}
}

func (c *Client) get(ctx context.Context, url string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}
