package lightingClient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/higorabreu/iot-eco-client/lighting-api/lightingStructs"
	"go.uber.org/zap"
)

const (
	RegistersPath          = "registers"
	LampOnTimePath         = "lamp-on-time"
	MonthlyConsumptionPath = "monthly-consumption"
	SoilMoisturePath       = "soil-moisture-data"
	LightSensorPath        = "light-sensor-data"
	TemperaturePath        = "temperature-data"
	AlertsPath             = "alerts"
)

type LightingApiClient struct {
	BaseUrl string
	client  http.Client
	logger  *zap.SugaredLogger
}

func NewLightingApiClient(baseUrl string, timeout time.Duration, logger *zap.SugaredLogger) *LightingApiClient {
	return &LightingApiClient{
		BaseUrl: strings.TrimRight(baseUrl, "/"),
		client:  http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *LightingApiClient) getResourcePath(ctx context.Context, path string) ([]byte, error) {
	u, err := url.JoinPath(c.BaseUrl, path)
	if err != nil {
		return nil, &lightingStructs.NetworkError{Url: c.BaseUrl + "/" + path, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &lightingStructs.NetworkError{Url: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	r, err := c.client.Do(req)
	if err != nil {
		return nil, &lightingStructs.NetworkError{Url: u, Err: err}
	}
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &lightingStructs.NetworkError{Url: u, Err: err}
	}
	if r.StatusCode < 200 || r.StatusCode > 299 {
		c.logger.Warnf("GET %s returned %d: %s", u, r.StatusCode, truncate(body, 200))
		return nil, &lightingStructs.NetworkError{
			Url:        u,
			StatusCode: r.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", r.Status),
		}
	}
	return body, nil
}

func getJson[T any](ctx context.Context, c *LightingApiClient, path string) (T, error) {
	var out T
	body, err := c.getResourcePath(ctx, path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, &lightingStructs.DataError{Source: path, Index: -1, Err: err}
	}
	return out, nil
}

func (c *LightingApiClient) GetRegisters(ctx context.Context) ([]lightingStructs.Register, error) {
	registers, err := getJson[[]lightingStructs.Register](ctx, c, RegistersPath)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Get List of Registers: ", len(registers))
	return registers, nil
}

func (c *LightingApiClient) GetLampOnTime(ctx context.Context) (lightingStructs.LampOnTime, error) {
	return getJson[lightingStructs.LampOnTime](ctx, c, LampOnTimePath)
}

func (c *LightingApiClient) GetMonthlyConsumption(ctx context.Context) (lightingStructs.MonthlyConsumption, error) {
	return getJson[lightingStructs.MonthlyConsumption](ctx, c, MonthlyConsumptionPath)
}

// GetRecords fetches one of the loosely typed list endpoints, e.g. the sensor
// datasets or alerts.
func (c *LightingApiClient) GetRecords(ctx context.Context, path string) ([]lightingStructs.Record, error) {
	records, err := getJson[[]lightingStructs.Record](ctx, c, strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, err
	}
	c.logger.Infof("Get List of %s: %d", path, len(records))
	return records, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
