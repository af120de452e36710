package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/site-warden/pkg/models/domain"
	"github.com/de-tools/site-warden/pkg/services/retry"
	"github.com/spf13/viper"
)

// Policy is the run configuration loaded once at process start. It is
// immutable after Load and passed to every component explicitly; there is
// no global settings object.
type Policy struct {
	LogOnly         bool           `mapstructure:"log_only"`
	LogDir          string         `mapstructure:"log_dir"`
	HistoryPath     string         `mapstructure:"history_path"`
	PageSize        int            `mapstructure:"page_size"`
	Workers         int            `mapstructure:"workers"`
	DeadlineMinutes int            `mapstructure:"deadline_minutes"`
	Retry           RetrySettings  `mapstructure:"retry"`
	Thresholds      map[string]int `mapstructure:"thresholds"`
	PeakWindow      WindowSetting  `mapstructure:"peak_window"`
	Rotation        RotationSetting `mapstructure:"rotation"`
}

type RetrySettings struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Jitter      float64       `mapstructure:"jitter"`
}

type WindowSetting struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

type RotationSetting struct {
	MaxFileMB  int `mapstructure:"max_file_mb"`
	MaxBackups int `mapstructure:"max_backups"`
}

// LoadPolicy reads the policy file. A missing path yields the defaults: the
// original deployment's operational values, log-only on.
func LoadPolicy(path string) (*Policy, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read policy file: %w", err)
		}
	}

	var policy Policy
	if err := v.Unmarshal(&policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}
	return &policy, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_only", true)
	v.SetDefault("log_dir", "logs")
	v.SetDefault("history_path", "site-warden.db")
	v.SetDefault("page_size", 100)
	v.SetDefault("workers", 4)
	v.SetDefault("deadline_minutes", 0)
	v.SetDefault("retry.max_attempts", 4)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "30s")
	v.SetDefault("retry.jitter", 0.25)
	v.SetDefault("thresholds.users", 730)
	v.SetDefault("thresholds.workbooks", 730)
	v.SetDefault("thresholds.datasources", 730)
	v.SetDefault("thresholds.sites", 730)
	v.SetDefault("peak_window.start", "08:00")
	v.SetDefault("peak_window.end", "18:00")
	v.SetDefault("rotation.max_file_mb", 10)
	v.SetDefault("rotation.max_backups", 5)
}

func (p *Policy) validate() error {
	for name := range p.Thresholds {
		if !domain.ResourceType(name).Valid() {
			return fmt.Errorf("unknown resource type %q in thresholds", name)
		}
	}
	if _, err := parseTimeOfDay(p.PeakWindow.Start); err != nil {
		return fmt.Errorf("peak_window.start: %w", err)
	}
	if _, err := parseTimeOfDay(p.PeakWindow.End); err != nil {
		return fmt.Errorf("peak_window.end: %w", err)
	}
	if p.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	return nil
}

// Mode returns the enforcement mode the run flag selects.
func (p *Policy) Mode() domain.EnforcementMode {
	if p.LogOnly {
		return domain.ModeLogOnly
	}
	return domain.ModeCleanup
}

// DomainThresholds converts the policy into per-resource thresholds for the
// evaluator. Every known resource type gets one; the peak window applies to
// schedule-based types.
func (p *Policy) DomainThresholds() ([]domain.Threshold, error) {
	window, err := p.Window()
	if err != nil {
		return nil, err
	}

	thresholds := make([]domain.Threshold, 0, len(domain.AllResourceTypes()))
	for _, rt := range domain.AllResourceTypes() {
		thresholds = append(thresholds, domain.Threshold{
			Resource: rt,
			Days:     p.Thresholds[string(rt)],
			Window:   window,
			Mode:     p.Mode(),
		})
	}
	return thresholds, nil
}

func (p *Policy) Window() (domain.PeakWindow, error) {
	start, err := parseTimeOfDay(p.PeakWindow.Start)
	if err != nil {
		return domain.PeakWindow{}, err
	}
	end, err := parseTimeOfDay(p.PeakWindow.End)
	if err != nil {
		return domain.PeakWindow{}, err
	}
	return domain.PeakWindow{Start: start, End: end}, nil
}

// RetryPolicy converts the retry settings for the executor.
func (p *Policy) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    p.Retry.MaxAttempts,
		BaseDelay:      p.Retry.BaseDelay,
		MaxDelay:       p.Retry.MaxDelay,
		JitterFraction: p.Retry.Jitter,
	}
}

func parseTimeOfDay(v string) (domain.TimeOfDay, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return domain.TimeOfDay{}, fmt.Errorf("expected HH:MM, got %q", v)
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return domain.TimeOfDay{}, fmt.Errorf("expected HH:MM, got %q", v)
	}
	return domain.TimeOfDay{Hour: hour, Minute: minute}, nil
}
