// Package config loads the yaml configuration of the doorman server.
package config

import (
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/fatih/structs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/fileutils"
	"gopkg.in/yaml.v3"

	"github.com/doorman-auth/doorman"
	"github.com/doorman-auth/doorman/credentials"
	"github.com/doorman-auth/doorman/internal/logger"
	"github.com/doorman-auth/doorman/internal/render"
)

// EnvVar names the environment variable holding the config file path
const EnvVar = "DOORMAN_CONFIG"

// searchPaths are tried in order if no config file is given
var searchPaths = []string{
	"config.yaml",
	"/etc/doorman/config.yaml",
}

// Config holds the complete doorman configuration
type Config struct {
	Server    doorman.ServerConf `yaml:"server"`
	Storage   storageConf        `yaml:"storage"`
	Hashing   credentials.Config `yaml:"hashing"`
	Templates render.Conf        `yaml:"templates"`
	Logging   logger.Conf        `yaml:"logging"`
}

var conf *Config

// Get returns the loaded Config; before Load is called the defaults are
// returned
func Get() *Config {
	if conf == nil {
		c := defaultConfig()
		return &c
	}
	return conf
}

func defaultConfig() Config {
	return Config{
		Server:  defaultServerConf,
		Storage: defaultStorageConf,
		Hashing: credentials.DefaultConfig(),
		Logging: defaultLoggingConf,
	}
}

// Load reads the config file, validates it and makes it available through
// Get. If filename is empty the file is taken from the DOORMAN_CONFIG
// environment variable or the first existing search path; if there is none
// the defaults are used.
func Load(filename string) error {
	if filename == "" {
		filename = findConfigFile()
	}
	var data []byte
	if filename != "" {
		var err error
		data, err = os.ReadFile(filename)
		if err != nil {
			return errors.Wrap(err, "could not read config file")
		}
	}
	c, err := parse(data)
	if err != nil {
		return errors.Wrapf(err, "invalid config file '%s'", filename)
	}
	conf = c
	return nil
}

func findConfigFile() string {
	if f := os.Getenv(EnvVar); f != "" {
		return f
	}
	for _, p := range searchPaths {
		if fileutils.FileExists(p) {
			return p
		}
	}
	log.Warn("no config file found, using defaults")
	return ""
}

// parse overlays the yaml data over the defaults and validates the result
func parse(data []byte) (*Config, error) {
	c := defaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, errors.WithStack(err)
		}
		warnUnknownKeys(data, &c)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if err := validateServer(c.Server); err != nil {
		return errors.Wrap(err, "error in server conf")
	}
	if err := c.Storage.validate(); err != nil {
		return errors.Wrap(err, "error in storage conf")
	}
	if _, err := credentials.New(c.Hashing); err != nil {
		return errors.Wrap(err, "error in hashing conf")
	}
	if d := c.Templates.Dir; d != "" && !fileutils.FileExists(d) {
		return errors.Errorf("error in templates conf: directory '%s' does not exist", d)
	}
	if err := validateLogging(c.Logging); err != nil {
		return errors.Wrap(err, "error in logging conf")
	}
	return nil
}

func warnUnknownKeys(data []byte, c *Config) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return
	}
	for _, k := range unknownKeys(raw, structs.New(c).Fields(), "") {
		log.WithField("key", k).Warn("unknown config option")
	}
}

// unknownKeys returns the keys of raw (recursively, dot separated) that do
// not match a yaml tag of fields
func unknownKeys(raw map[string]any, fields []*structs.Field, prefix string) []string {
	known := make(map[string]*structs.Field)
	collectYAMLFields(fields, known)
	var unknown []string
	for k, v := range raw {
		f, ok := known[k]
		if !ok {
			unknown = append(unknown, prefix+k)
			continue
		}
		if sub, isMap := v.(map[string]any); isMap && f.Kind() == reflect.Struct {
			unknown = append(unknown, unknownKeys(sub, f.Fields(), prefix+k+".")...)
		}
	}
	slices.Sort(unknown)
	return unknown
}

func collectYAMLFields(fields []*structs.Field, known map[string]*structs.Field) {
	for _, f := range fields {
		name, opts, _ := strings.Cut(f.Tag("yaml"), ",")
		if name == "-" {
			continue
		}
		if strings.Contains(opts, "inline") {
			if f.Kind() == reflect.Struct {
				collectYAMLFields(f.Fields(), known)
			}
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name())
		}
		known[name] = f
	}
}
