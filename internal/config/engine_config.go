package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AdzunaConfig struct {
	AppID   string `mapstructure:"app_id"`
	AppKey  string `mapstructure:"app_key"`
	Country string `mapstructure:"country"`
}

type ProvidersConfig struct {
	Adzuna          AdzunaConfig `mapstructure:"adzuna"`
	RemotiveEnabled bool         `mapstructure:"remotive_enabled"`
}

type EngineConfig struct {
	AIKey                    string          `mapstructure:"ai_key"`
	AIModel                  string          `mapstructure:"ai_model"`
	RefinementEnabled        bool            `mapstructure:"refinement_enabled"`
	MinMatchScore            int             `mapstructure:"min_match_score"`
	RunInterval              time.Duration   `mapstructure:"run_interval"`
	ProviderTimeout          time.Duration   `mapstructure:"provider_timeout"`
	RefinementTimeout        time.Duration   `mapstructure:"refinement_timeout"`
	BoardMaxRequestsPerSec   float32         `mapstructure:"board_max_requests_per_second"`
	AIMaxRequestsPerMinute   float32         `mapstructure:"ai_max_requests_per_minute"`
	AIMaxRequestsPerDay      float32         `mapstructure:"ai_max_requests_per_day"`
	Providers                ProvidersConfig `mapstructure:"providers"`
	PatternDetectionSchedule string          `mapstructure:"pattern_detection_schedule"`
}

func (config EngineConfig) validate() error {

	var missingFields []string

	if config.RefinementEnabled && config.AIKey == "" {
		missingFields = append(missingFields, "ai_key")
	}

	if config.MinMatchScore < 0 || config.MinMatchScore > 100 {
		return fmt.Errorf("min_match_score must be within [0,100]")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

func (config EngineConfig) bindEnvironmentVariables() error {
	var errs []error
	binds := map[string]string{
		"engine.ai_key":                   "AI_KEY",
		"engine.ai_model":                 "AI_MODEL",
		"engine.refinement_enabled":       "REFINEMENT_ENABLED",
		"engine.min_match_score":          "MIN_MATCH_SCORE",
		"engine.run_interval":             "RUN_INTERVAL",
		"engine.providers.adzuna.app_id":  "ADZUNA_APP_ID",
		"engine.providers.adzuna.app_key": "ADZUNA_APP_KEY",
	}

	for key, env := range binds {
		if err := viper.BindEnv(key, env); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
