package agents

import "math"

const (
	ModelRealtime70B = "ultravox_realtime_70b"
	ModelRealtime8B  = "ultravox_realtime_8b"

	InitialCallerInitiates = "caller_initiates"
	InitialAIDynamic       = "ai_initiates_dynamic"
	InitialAICustom        = "ai_initiates_custom"

	DefaultLanguage = "en"
)

// Languages an agent can speak.
var Languages = []string{"en", "es", "fr", "de"}

func SupportedLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Settings is the full set of per-agent call options.
type Settings struct {
	LLMModel               string  `json:"llm_model"`
	InitialMessageType     string  `json:"initial_message_type"`
	CustomInitialMessage   string  `json:"custom_initial_message,omitempty"`
	Temperature            float64 `json:"temperature"`
	EndCallSilenceDuration int     `json:"end_call_silence_duration"` // seconds
	MaxCallDuration        int     `json:"max_call_duration"`         // seconds
	PauseBeforeSpeaking    int     `json:"pause_before_speaking"`     // milliseconds
	EnableTranscriptions   bool    `json:"enable_transcriptions"`
	EnableRecordings       bool    `json:"enable_recordings"`
}

func DefaultSettings() Settings {
	return Settings{
		LLMModel:               ModelRealtime70B,
		InitialMessageType:     InitialCallerInitiates,
		Temperature:            0.4,
		EndCallSilenceDuration: 30,
		MaxCallDuration:        3600,
		PauseBeforeSpeaking:    0,
	}
}

// SettingsInput carries optional overrides; nil fields keep the default.
type SettingsInput struct {
	LLMModel               *string  `json:"llm_model"`
	InitialMessageType     *string  `json:"initial_message_type"`
	CustomInitialMessage   *string  `json:"custom_initial_message"`
	Temperature            *float64 `json:"temperature"`
	EndCallSilenceDuration *int     `json:"end_call_silence_duration"`
	MaxCallDuration        *int     `json:"max_call_duration"`
	PauseBeforeSpeaking    *int     `json:"pause_before_speaking"`
	EnableTranscriptions   *bool    `json:"enable_transcriptions"`
	EnableRecordings       *bool    `json:"enable_recordings"`
}

// Apply overlays in on base.
func (in *SettingsInput) Apply(base Settings) Settings {
	if in == nil {
		return base
	}
	if in.LLMModel != nil {
		base.LLMModel = *in.LLMModel
	}
	if in.InitialMessageType != nil {
		base.InitialMessageType = *in.InitialMessageType
	}
	if in.CustomInitialMessage != nil {
		base.CustomInitialMessage = *in.CustomInitialMessage
	}
	if in.Temperature != nil {
		base.Temperature = *in.Temperature
	}
	if in.EndCallSilenceDuration != nil {
		base.EndCallSilenceDuration = *in.EndCallSilenceDuration
	}
	if in.MaxCallDuration != nil {
		base.MaxCallDuration = *in.MaxCallDuration
	}
	if in.PauseBeforeSpeaking != nil {
		base.PauseBeforeSpeaking = *in.PauseBeforeSpeaking
	}
	if in.EnableTranscriptions != nil {
		base.EnableTranscriptions = *in.EnableTranscriptions
	}
	if in.EnableRecordings != nil {
		base.EnableRecordings = *in.EnableRecordings
	}
	return base
}

// Normalize rounds temperature to two decimals and drops a custom message
// that the initial message type does not use.
func (s Settings) Normalize() Settings {
	s.Temperature = math.Round(s.Temperature*100) / 100
	if s.InitialMessageType != InitialAICustom {
		s.CustomInitialMessage = ""
	}
	return s
}

func (s Settings) validate(v *ValidationError) {
	switch s.LLMModel {
	case ModelRealtime70B, ModelRealtime8B:
	default:
		v.add("llm_model", "must be ultravox_realtime_70b or ultravox_realtime_8b")
	}
	switch s.InitialMessageType {
	case InitialCallerInitiates, InitialAIDynamic:
	case InitialAICustom:
		if s.CustomInitialMessage == "" {
			v.add("custom_initial_message", "required when AI initiates with custom message")
		}
	default:
		v.add("initial_message_type", "must be caller_initiates, ai_initiates_dynamic or ai_initiates_custom")
	}
	if s.Temperature < 0 || s.Temperature > 1 {
		v.add("temperature", "must be between 0 and 1")
	}
	if s.EndCallSilenceDuration < 10 || s.EndCallSilenceDuration > 1800 {
		v.add("end_call_silence_duration", "must be between 10 and 1800 seconds")
	}
	if s.MaxCallDuration < 60 || s.MaxCallDuration > 7200 {
		v.add("max_call_duration", "must be between 60 and 7200 seconds")
	}
	if s.PauseBeforeSpeaking < 0 || s.PauseBeforeSpeaking > 5000 {
		v.add("pause_before_speaking", "must be between 0 and 5000 milliseconds")
	}
}

// Validate reports every out-of-range option.
func (s Settings) Validate() error {
	v := &ValidationError{}
	s.validate(v)
	return v.orNil()
}
