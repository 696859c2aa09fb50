package config

import "strings"

// DefaultFrameCommand grabs one PNG frame from the first V4L2 camera.
var DefaultFrameCommand = []string{
	"ffmpeg", "-hide_banner", "-loglevel", "error",
	"-f", "v4l2", "-i", "/dev/video0",
	"-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-",
}

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	frame := append([]string(nil), DefaultFrameCommand...)

	return Config{
		Session: SessionConfig{
			PrepSeconds:   15,
			AnswerSeconds: 90,
			Modality:      "audio_only",
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Video: VideoConfig{
			FrameCommand: CommandConfig{Raw: strings.Join(frame, " "), Argv: frame},
			MaxDimension: 720,
			TimeoutMS:    3000,
		},
		Analysis: AnalysisConfig{
			BaseURL:   "http://127.0.0.1:5001",
			TimeoutMS: 60000,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSNEnv: "REHEARSE_DATABASE_URL",
		},
		Questions: QuestionsConfig{
			Provider:     "service",
			Model:        "gemini-1.5-flash-latest",
			Count:        8,
			Attempts:     2,
			RetryDelayMS: 1000,
		},
		Chat: ChatConfig{
			Model:      "gemini-1.5-flash-latest",
			TTLMinutes: 30,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			SoundEnable:    true,
			DesktopAppName: "rehearse",
		},
		Log:   LogConfig{Level: "info"},
		Debug: DebugConfig{},
	}
}
