package engine

import (
	"fmt"
	"sync"
)

// Setting keys that may be changed at runtime through the dashboard.
const (
	SettingTopic     = "content_topic"
	SettingFrequency = "content_frequency"
	SettingPrivacy   = "video_privacy"
)

// Settings is the mutable slice of configuration: the handful of values
// the dashboard can change while the service runs. Everything else stays
// fixed at startup.
type Settings struct {
	mu        sync.RWMutex
	topic     string
	frequency string
	privacy   string
}

// NewSettings seeds the runtime settings from startup configuration.
func NewSettings(topic, frequency, privacy string) *Settings {
	return &Settings{
		topic:     topic,
		frequency: frequency,
		privacy:   privacy,
	}
}

// Snapshot returns the current settings as a map keyed by setting name.
func (s *Settings) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]string{
		SettingTopic:     s.topic,
		SettingFrequency: s.frequency,
		SettingPrivacy:   s.privacy,
	}
}

// Topic returns the current default content topic.
func (s *Settings) Topic() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topic
}

// Privacy returns the current video privacy setting.
func (s *Settings) Privacy() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.privacy
}

// Update applies the given changes atomically. Unknown keys or invalid
// values reject the whole update and change nothing.
func (s *Settings) Update(changes map[string]string) error {
	for key, value := range changes {
		switch key {
		case SettingTopic:
			if value == "" {
				return fmt.Errorf("%s cannot be empty", SettingTopic)
			}
		case SettingFrequency:
			if value != "daily" && value != "weekly" {
				return fmt.Errorf("%s must be daily or weekly, got %q", SettingFrequency, value)
			}
		case SettingPrivacy:
			if value != "public" && value != "unlisted" && value != "private" {
				return fmt.Errorf("%s must be public, unlisted, or private, got %q", SettingPrivacy, value)
			}
		default:
			return fmt.Errorf("unknown setting %q", key)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range changes {
		switch key {
		case SettingTopic:
			s.topic = value
		case SettingFrequency:
			s.frequency = value
		case SettingPrivacy:
			s.privacy = value
		}
	}
	return nil
}
