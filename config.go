package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/higorabreu/iot-eco-client/lighting-api/lightingClient"
)

type sensorConfig struct {
	Path  string `mapstructure:"path"`
	Key   string `mapstructure:"key"`
	Title string `mapstructure:"title"`
}

type config struct {
	Api struct {
		Url     string        `mapstructure:"url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"api"`
	Dashboard struct {
		Refresh  time.Duration `mapstructure:"refresh"`
		Location string        `mapstructure:"location"`
		Title    string        `mapstructure:"title"`
	} `mapstructure:"dashboard"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Log struct {
		File string `mapstructure:"file"`
	} `mapstructure:"log"`
	Influxdb struct {
		Host   string `mapstructure:"host"`
		Token  string `mapstructure:"token"`
		Org    string `mapstructure:"org"`
		Bucket string `mapstructure:"bucket"`
	} `mapstructure:"influxdb"`
	Sensors map[string]sensorConfig `mapstructure:"sensors"`
}

const defaultLogFile = "iot_eco_client.log"

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", "https://smart-lighting-system-api.onrender.com")
	v.SetDefault("api.timeout", "30s")
	// 0 loads once at start-up
	v.SetDefault("dashboard.refresh", "0s")
	v.SetDefault("dashboard.location", "Local")
	v.SetDefault("dashboard.title", "")
	v.SetDefault("server.port", "9124")
	v.SetDefault("log.file", defaultLogFile)
	v.SetDefault("influxdb.host", "")
	v.SetDefault("influxdb.token", "")
	v.SetDefault("influxdb.org", "")
	v.SetDefault("influxdb.bucket", "")
	v.SetDefault("sensors", map[string]any{
		"soil-moisture": map[string]any{"path": lightingClient.SoilMoisturePath, "key": "soil_moisture", "title": "Soil moisture"},
		"light":         map[string]any{"path": lightingClient.LightSensorPath, "key": "light_level", "title": "Light sensor"},
		"temperature":   map[string]any{"path": lightingClient.TemperaturePath, "key": "temperature", "title": "Temperature"},
	})
}

// loadConfig layers defaults, the yaml document raw and LIGHTING_* environment
// variables. An empty raw document is not an error.
func loadConfig(v *viper.Viper, raw []byte) (c config, err error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("lighting")
	v.AutomaticEnv()
	v.SetConfigType("yaml")
	if len(raw) > 0 {
		if err = v.ReadConfig(bytes.NewBuffer(raw)); err != nil {
			return c, fmt.Errorf("reading config: %w", err)
		}
	}
	if err = v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding config: %w", err)
	}
	if c.Api.Url == "" {
		return c, fmt.Errorf("api.url must not be empty")
	}
	return c, nil
}

func (c config) location() (*time.Location, error) {
	return time.LoadLocation(c.Dashboard.Location)
}
