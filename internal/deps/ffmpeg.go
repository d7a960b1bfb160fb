package deps

import "reel/internal/config"

// Required lists the external binaries the transcode stage executes.
func Required(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Transcodes recordings to the target format",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Reads duration metadata from recordings",
		},
	}
}

// MissingRequired returns the statuses of required binaries that are not
// available on this host.
func MissingRequired(cfg *config.Config) []Status {
	var missing []Status
	for _, status := range CheckBinaries(Required(cfg)) {
		if !status.Optional && !status.Available {
			missing = append(missing, status)
		}
	}
	return missing
}
