package configs

import (
	"github.com/spf13/viper"

	"github.com/signalsfoundry/gnss-acquisition/internal/observability"
	"github.com/signalsfoundry/gnss-acquisition/internal/replica"
)

// DefaultCandidates is every GPS C/A PRN.
func DefaultCandidates() []int {
	out := make([]int, 32)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// setDefaults registers defaults for every key so that environment
// overrides resolve through AutomaticEnv. Defaults sit below flags.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// GPS L1 C/A on a 4.096 MHz front end
	v.SetDefault("acquisition.sampling_freq_hz", 4.096e6)
	v.SetDefault("acquisition.intermediate_freq_hz", 0.0)
	v.SetDefault("acquisition.chip_rate_hz", replica.CAChipRateHz)
	v.SetDefault("acquisition.code_length_chips", replica.CALength)
	v.SetDefault("acquisition.coherent_integration_ms", 1.0)
	v.SetDefault("acquisition.search_band_hz", 14000.0)
	v.SetDefault("acquisition.threshold", 2.5)
	v.SetDefault("acquisition.code_phase_offset", 0)
	v.SetDefault("acquisition.candidates", DefaultCandidates())
	v.SetDefault("acquisition.workers", 1)

	v.SetDefault("capture.path", "")
	v.SetDefault("capture.format", "int8iq")
	v.SetDefault("capture.offset_bytes", 0)
	v.SetDefault("capture.samples", 0)

	v.SetDefault("aiding.visible_only", false)
	v.SetDefault("aiding.catalog", "")
	v.SetDefault("aiding.latitude_deg", 0.0)
	v.SetDefault("aiding.longitude_deg", 0.0)
	v.SetDefault("aiding.altitude_m", 0.0)
	v.SetDefault("aiding.elevation_mask_deg", 5.0)
	v.SetDefault("aiding.time", "")

	v.SetDefault("output.format", "table")
	v.SetDefault("output.precision", 2)

	tracing := observability.DefaultTracingConfig()
	v.SetDefault("observability.metrics_addr", "")
	v.SetDefault("observability.tracing.enabled", tracing.Enabled)
	v.SetDefault("observability.tracing.service_name", tracing.ServiceName)
	v.SetDefault("observability.tracing.exporter", tracing.Exporter)
	v.SetDefault("observability.tracing.endpoint", tracing.Endpoint)
	v.SetDefault("observability.tracing.sample_ratio", tracing.SampleRatio)
}
