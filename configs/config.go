package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/signalsfoundry/gnss-acquisition/internal/observability"
	"github.com/signalsfoundry/gnss-acquisition/internal/samples"
	"github.com/signalsfoundry/gnss-acquisition/model"
)

// EnvPrefix namespaces environment overrides, e.g. ACQ_ACQUISITION_THRESHOLD.
const EnvPrefix = "ACQ"

// Config represents the application configuration
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Search parameters
	Acquisition AcquisitionSection `mapstructure:"acquisition"`

	// Sample file to read
	Capture CaptureSection `mapstructure:"capture"`

	// Orbit-based candidate narrowing
	Aiding AidingSection `mapstructure:"aiding"`

	Output        OutputSection        `mapstructure:"output"`
	Observability ObservabilitySection `mapstructure:"observability"`
}

// AcquisitionSection mirrors model.AcquisitionConfig plus engine sizing.
type AcquisitionSection struct {
	SamplingFreqHz        float64 `mapstructure:"sampling_freq_hz"`
	IntermediateFreqHz    float64 `mapstructure:"intermediate_freq_hz"`
	ChipRateHz            float64 `mapstructure:"chip_rate_hz"`
	CodeLengthChips       int     `mapstructure:"code_length_chips"`
	CoherentIntegrationMs float64 `mapstructure:"coherent_integration_ms"`
	SearchBandHz          float64 `mapstructure:"search_band_hz"`
	Threshold             float64 `mapstructure:"threshold"`
	CodePhaseOffset       int     `mapstructure:"code_phase_offset"`
	Candidates            []int   `mapstructure:"candidates"`
	Workers               int     `mapstructure:"workers"`
}

// CaptureSection locates the raw front-end samples.
type CaptureSection struct {
	Path        string `mapstructure:"path"`
	Format      string `mapstructure:"format"`
	OffsetBytes int64  `mapstructure:"offset_bytes"`
	Samples     int    `mapstructure:"samples"` // 0 reads the minimum the search needs
}

// AidingSection configures visibility prediction.
type AidingSection struct {
	VisibleOnly      bool    `mapstructure:"visible_only"`
	Catalog          string  `mapstructure:"catalog"`
	LatitudeDeg      float64 `mapstructure:"latitude_deg"`
	LongitudeDeg     float64 `mapstructure:"longitude_deg"`
	AltitudeM        float64 `mapstructure:"altitude_m"`
	ElevationMaskDeg float64 `mapstructure:"elevation_mask_deg"`
	Time             string  `mapstructure:"time"` // RFC3339; empty means now
}

// OutputSection contains output formatting settings
type OutputSection struct {
	Format    string `mapstructure:"format"` // table | json | yaml
	Precision int    `mapstructure:"precision"`
}

// ObservabilitySection contains metrics and tracing settings.
type ObservabilitySection struct {
	MetricsAddr string                      `mapstructure:"metrics_addr"`
	Tracing     observability.TracingConfig `mapstructure:"tracing"`
}

// New prepares a viper instance with defaults, ACQ_ environment overrides
// and, when path is set or an acquire.yaml is found, a config file.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("acquire")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Load is New followed by Decode.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// AcquisitionConfig maps the acquisition section onto the engine parameters.
func (c *Config) AcquisitionConfig() model.AcquisitionConfig {
	a := c.Acquisition
	return model.AcquisitionConfig{
		SamplingFreqHz:        a.SamplingFreqHz,
		IntermediateFreqHz:    a.IntermediateFreqHz,
		ChipRateHz:            a.ChipRateHz,
		CodeLengthChips:       a.CodeLengthChips,
		CoherentIntegrationMs: a.CoherentIntegrationMs,
		SearchBandHz:          a.SearchBandHz,
		Threshold:             a.Threshold,
		CodePhaseOffset:       a.CodePhaseOffset,
		Candidates:            append([]int(nil), a.Candidates...),
	}
}

// Receiver returns the aiding receiver position.
func (c *Config) Receiver() model.GeodeticPosition {
	return model.GeodeticPosition{
		LatitudeDeg:  c.Aiding.LatitudeDeg,
		LongitudeDeg: c.Aiding.LongitudeDeg,
		AltitudeM:    c.Aiding.AltitudeM,
	}
}

// AidingTime parses the aiding epoch, falling back to now.
func (c *Config) AidingTime(now func() time.Time) (time.Time, error) {
	if c.Aiding.Time == "" {
		return now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, c.Aiding.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("aiding time: %w", err)
	}
	return t.UTC(), nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if err := config.AcquisitionConfig().Validate(); err != nil {
		return err
	}
	if config.Acquisition.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", config.Acquisition.Workers)
	}
	if config.Capture.Format != "" {
		if _, err := samples.ParseFormat(config.Capture.Format); err != nil {
			return err
		}
	}
	if config.Capture.OffsetBytes < 0 || config.Capture.Samples < 0 {
		return fmt.Errorf("capture offset and sample count cannot be negative")
	}
	switch config.Output.Format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("output format must be table, json or yaml, got %q", config.Output.Format)
	}
	if lat := config.Aiding.LatitudeDeg; lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be within ±90°, got %v", lat)
	}
	if mask := config.Aiding.ElevationMaskDeg; mask < -90 || mask > 90 {
		return fmt.Errorf("elevation mask must be within ±90°, got %v", mask)
	}
	if r := config.Observability.Tracing.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("tracing sample ratio must be between 0 and 1")
	}
	return nil
}
