package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// File is the TOML configuration file. Unset keys fall through to the
// environment defaults.
//
//	mode = "http"
//	port = 8080
//	host = "127.0.0.1"
//	enable_cors = true
//	log_level = "debug"
type File struct {
	Mode       *string `toml:"mode"`
	Port       *int    `toml:"port"`
	Host       *string `toml:"host"`
	EnableCORS *bool   `toml:"enable_cors"`
	LogLevel   *string `toml:"log_level"`
}

// LoadFile loads configuration from a TOML file. Unknown keys are an error.
func LoadFile(path string) (*File, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("unknown configuration keys in %s: %s", path, strings.Join(keys, ", "))
	}

	return &f, nil
}

// vars maps the file's settings to their environment variables.
func (f *File) vars() map[string]string {
	vars := make(map[string]string)
	if f.Mode != nil {
		vars["MCP_MODE"] = *f.Mode
	}
	if f.Port != nil {
		vars["HTTP_PORT"] = strconv.Itoa(*f.Port)
	}
	if f.Host != nil {
		vars["HTTP_HOST"] = *f.Host
	}
	if f.EnableCORS != nil {
		vars["ENABLE_CORS"] = strconv.FormatBool(*f.EnableCORS)
	}
	if f.LogLevel != nil {
		vars["LOG_LEVEL"] = *f.LogLevel
	}
	return vars
}
