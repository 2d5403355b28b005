// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the sandbox configuration: defaults, then an optional
// YAML file, then the environment.
package config

import (
	"os"
	"strings"

	"github.com/ceejaey/llm-multiagent-sandbox/llm"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	Log         LogConfig       `koanf:"log"`
	Model       llm.ModelConfig `koanf:"model"`
	Workflows   string          `koanf:"workflows"`
	Concurrency int             `koanf:"concurrency"`
	Trace       TraceConfig     `koanf:"trace"`
}

type LogConfig struct {
	Level string `koanf:"level"` // error, info, debug
}

type TraceConfig struct {
	Enabled bool `koanf:"enabled"`
}

// envKeys maps unprefixed variables onto config keys.
var envKeys = map[string]string{
	"API_TYPE":             "model.type",
	"API_KEY":              "model.api_key",
	"MODEL_NAME":           "model.model_name",
	"BASE_URL":             "model.base_url",
	"OPENAI_API_KEY_AGENT": "model.api_key",
	"SANDBOX_TRACE":        "trace.enabled",
}

const envPrefix = "SANDBOX_"

// Load reads defaults, then path when it is not empty, then the environment.
// Each call uses its own koanf instance.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	k.Set("log.level", "info")
	k.Set("model.type", string(llm.ModelTypeOllama))
	k.Set("model.model_name", "gemma3:4b")
	k.Set("model.base_url", "http://localhost:11434")
	k.Set("model.temperature", 0.0)
	k.Set("model.timeout", llm.DefaultTimeout.String())
	k.Set("model.max_tokens", llm.DefaultMaxTokens)
	k.Set("concurrency", 4)
	k.Set("trace.enabled", false)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load config file %s", path)
		}
	}

	// OPENAI_API_KEY_AGENT only fills the key when API_KEY is unset.
	preferAPIKey := os.Getenv("API_KEY") != ""
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		if mapped, ok := envKeys[key]; ok {
			if key == "OPENAI_API_KEY_AGENT" && preferAPIKey {
				return "", nil
			}
			return mapped, value
		}
		if strings.HasPrefix(key, envPrefix) {
			return strings.Replace(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "_", ".", 1), value
		}
		return "", nil
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.Model.APIType = llm.NewModelType(string(cfg.Model.APIType))
	return &cfg, nil
}

// Validate rejects configurations no command can run with.
func (c *Config) Validate() error {
	if c.Model.APIType == llm.ModelTypeUnknown {
		return errors.New("unknown model type; use one of ollama, openai, claude, ark, dashscope, deepseek, echo")
	}
	if c.Model.APIType.Hosted() && c.Model.APIKey == "" {
		return errors.Errorf("model type %s needs an API key (API_KEY)", c.Model.APIType)
	}
	if c.Concurrency < 1 {
		return errors.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}
