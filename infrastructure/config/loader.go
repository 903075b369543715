// Package config loads service configuration from an optional YAML file, .env files
// and environment variables.
//
// Precedence, lowest to highest: struct defaults, YAML file, environment. Environment
// variables are bound with an `env:"NAME"` struct tag:
//
//	type Config struct {
//	    Port int `yaml:"port" env:"GAPFINDER_PORT"`
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// loadEnvFiles loads ENV_FILE if set, otherwise .env.local then .env.
// Missing files are ignored; variables already in the environment win.
func loadEnvFiles() error {
	files := []string{".env.local", ".env"}
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		files = []string{envFile}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the YAML file at path into a new T and applies environment overrides.
// A missing file is an error; use LoadWithDefaults for optional files.
func Load[T any](path string) (*T, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg T
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadWithDefaults reads path if it exists, fills unset values with setDefaults and
// applies environment overrides last.
func LoadWithDefaults[T any](path string, setDefaults func(*T)) (*T, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	var cfg T
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// environment and defaults only
	default:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	if setDefaults != nil {
		setDefaults(&cfg)
	}
	return &cfg, nil
}

// GetConfigPath returns CONFIG_PATH when set, otherwise defaultPath.
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}

func applyEnvOverrides(cfg any) {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	applyEnvToStruct(v)
}

func applyEnvToStruct(v reflect.Value) {
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			applyEnvToStruct(field)
			continue
		}

		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		if val, ok := os.LookupEnv(name); ok && val != "" {
			setFieldFromString(field, val)
		}
	}
}

func setFieldFromString(field reflect.Value, val string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			if d, err := time.ParseDuration(val); err == nil {
				field.SetInt(int64(d))
			}
			return
		}
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Float32, reflect.Float64:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			field.SetFloat(f)
		}
	case reflect.Bool:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes":
			field.SetBool(true)
		default:
			field.SetBool(false)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		parts := strings.Split(val, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
}
