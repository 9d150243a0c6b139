package rule

import (
	"encoding/json"
	"fmt"

	"autoclip/internal/audio"
)

// ActionType is the closed set of recognized action tags. Adding a type
// means adding a constant, a config struct, and a dispatcher handler;
// unrecognized tags fail at dispatch with a validation-class error.
type ActionType string

const (
	ActionContent                   ActionType = "content"
	ActionPublish                   ActionType = "publish"
	ActionSchedule                  ActionType = "schedule"
	ActionNotify                    ActionType = "notify"
	ActionWebhook                   ActionType = "webhook"
	ActionEmail                     ActionType = "email"
	ActionSceneDetection            ActionType = "scene_detection"
	ActionClipCreation              ActionType = "clip_creation"
	ActionCaptionGeneration         ActionType = "caption_generation"
	ActionCarouselCreation          ActionType = "carousel_creation"
	ActionKeyMomentTagging          ActionType = "key_moment_tagging"
	ActionAnalyticsExport           ActionType = "analytics_export"
	ActionAudioFilteredClipCreation ActionType = "audio_filtered_clip_creation"
	ActionAudioSegmentSkipping      ActionType = "audio_segment_skipping"
	ActionMusicGeneration           ActionType = "music_generation"
)

var knownActionTypes = map[ActionType]bool{
	ActionContent:                   true,
	ActionPublish:                   true,
	ActionSchedule:                  true,
	ActionNotify:                    true,
	ActionWebhook:                   true,
	ActionEmail:                     true,
	ActionSceneDetection:            true,
	ActionClipCreation:              true,
	ActionCaptionGeneration:         true,
	ActionCarouselCreation:          true,
	ActionKeyMomentTagging:          true,
	ActionAnalyticsExport:           true,
	ActionAudioFilteredClipCreation: true,
	ActionAudioSegmentSkipping:      true,
	ActionMusicGeneration:           true,
}

func (t ActionType) Valid() bool { return knownActionTypes[t] }

// ActionConfig is a decoded, validated per-type configuration.
type ActionConfig interface {
	Validate() error
}

type ContentConfig struct {
	Operation string                 `json:"operation"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (c *ContentConfig) Validate() error {
	if c.Operation == "" {
		return fmt.Errorf("content action requires an operation")
	}
	return nil
}

type PublishConfig struct {
	Platform   string `json:"platform"`
	ScheduleAt string `json:"schedule_at,omitempty"`
}

func (c *PublishConfig) Validate() error {
	if c.Platform == "" {
		return fmt.Errorf("publish action requires a platform")
	}
	return nil
}

type ScheduleConfig struct {
	At   string `json:"at,omitempty"`
	Cron string `json:"cron,omitempty"`
}

func (c *ScheduleConfig) Validate() error {
	if c.At == "" && c.Cron == "" {
		return fmt.Errorf("schedule action requires at or cron")
	}
	return nil
}

type NotifyConfig struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func (c *NotifyConfig) Validate() error {
	if c.Title == "" && c.Message == "" {
		return fmt.Errorf("notify action requires a title or message")
	}
	return nil
}

type WebhookConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (c *WebhookConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("webhook action requires a url")
	}
	return nil
}

type EmailConfig struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	Template string   `json:"template,omitempty"`
}

func (c *EmailConfig) Validate() error {
	if len(c.To) == 0 {
		return fmt.Errorf("email action requires at least one recipient")
	}
	return nil
}

type SceneDetectionConfig struct {
	Sensitivity float64 `json:"sensitivity,omitempty"`
}

func (c *SceneDetectionConfig) Validate() error {
	if c.Sensitivity < 0 || c.Sensitivity > 1 {
		return fmt.Errorf("scene detection sensitivity must be within [0,1]")
	}
	return nil
}

type ClipCreationConfig struct {
	MaxClips    int     `json:"max_clips,omitempty"`
	MinDuration float64 `json:"min_duration,omitempty"`
	MaxDuration float64 `json:"max_duration,omitempty"`
}

func (c *ClipCreationConfig) Validate() error {
	if c.MaxClips < 0 {
		return fmt.Errorf("max_clips must not be negative")
	}
	if c.MaxDuration > 0 && c.MinDuration > c.MaxDuration {
		return fmt.Errorf("min_duration must not exceed max_duration")
	}
	return nil
}

type CaptionConfig struct {
	Language string `json:"language,omitempty"`
	Style    string `json:"style,omitempty"`
}

func (c *CaptionConfig) Validate() error { return nil }

type CarouselConfig struct {
	MaxSlides int `json:"max_slides,omitempty"`
}

func (c *CarouselConfig) Validate() error {
	if c.MaxSlides < 0 {
		return fmt.Errorf("max_slides must not be negative")
	}
	return nil
}

type KeyMomentConfig struct {
	MaxMoments int             `json:"max_moments,omitempty"`
	Criteria   *audio.Criteria `json:"criteria,omitempty"`
}

func (c *KeyMomentConfig) Validate() error {
	if c.MaxMoments < 0 {
		return fmt.Errorf("max_moments must not be negative")
	}
	return nil
}

type AnalyticsExportConfig struct {
	Format string `json:"format,omitempty"`
	Period string `json:"period,omitempty"`
}

func (c *AnalyticsExportConfig) Validate() error {
	switch c.Format {
	case "", "csv", "json", "xlsx":
		return nil
	}
	return fmt.Errorf("unsupported export format: %s", c.Format)
}

type AudioFilteredClipConfig struct {
	Criteria audio.Criteria `json:"criteria"`
	MaxClips int            `json:"max_clips,omitempty"`
	Adaptive bool           `json:"adaptive,omitempty"`
}

func (c *AudioFilteredClipConfig) Validate() error {
	if c.MaxClips < 0 {
		return fmt.Errorf("max_clips must not be negative")
	}
	return nil
}

type AudioSegmentSkipConfig struct {
	Criteria audio.Criteria `json:"criteria"`
	Reason   string         `json:"reason,omitempty"`
}

func (c *AudioSegmentSkipConfig) Validate() error { return nil }

type MusicGenerationConfig struct {
	Provider string                 `json:"provider"`
	Params   map[string]interface{} `json:"params,omitempty"`
	SceneIDs []string               `json:"scene_ids,omitempty"`
}

func (c *MusicGenerationConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("music generation requires a provider")
	}
	return nil
}

// DecodeActionConfig decodes the stored config map into the typed struct for
// the given action type and validates it once, at rule-load time.
func DecodeActionConfig(t ActionType, raw map[string]interface{}) (ActionConfig, error) {
	var cfg ActionConfig
	switch t {
	case ActionContent:
		cfg = &ContentConfig{}
	case ActionPublish:
		cfg = &PublishConfig{}
	case ActionSchedule:
		cfg = &ScheduleConfig{}
	case ActionNotify:
		cfg = &NotifyConfig{}
	case ActionWebhook:
		cfg = &WebhookConfig{}
	case ActionEmail:
		cfg = &EmailConfig{}
	case ActionSceneDetection:
		cfg = &SceneDetectionConfig{}
	case ActionClipCreation:
		cfg = &ClipCreationConfig{}
	case ActionCaptionGeneration:
		cfg = &CaptionConfig{}
	case ActionCarouselCreation:
		cfg = &CarouselConfig{}
	case ActionKeyMomentTagging:
		cfg = &KeyMomentConfig{}
	case ActionAnalyticsExport:
		cfg = &AnalyticsExportConfig{}
	case ActionAudioFilteredClipCreation:
		cfg = &AudioFilteredClipConfig{}
	case ActionAudioSegmentSkipping:
		cfg = &AudioSegmentSkipConfig{}
	case ActionMusicGeneration:
		cfg = &MusicGenerationConfig{}
	default:
		return nil, fmt.Errorf("unknown action type: %s", t)
	}

	if raw != nil {
		body, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to encode action config: %w", err)
		}
		if err := json.Unmarshal(body, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s config: %w", t, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
