// Package logger sets up the internal logrus logger and the access log
// writer used by the http server.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	internalLogFile = "doorman.log"
	accessLogFile   = "access.log"
)

// OutputConf selects where a log is written to
type OutputConf struct {
	Dir    string `yaml:"dir"`
	StdErr bool   `yaml:"stderr"`
}

// InternalConf configures the internal logger
type InternalConf struct {
	OutputConf `yaml:",inline"`
	// Level is a logrus level name, e.g. DEBUG, INFO, WARN, ERROR
	Level string `yaml:"level"`
}

// Conf holds the complete logging configuration
type Conf struct {
	Access   OutputConf   `yaml:"access"`
	Internal InternalConf `yaml:"internal"`
}

var accessLogger io.Writer = os.Stderr

// Init initializes the internal logger and the access log writer.
func Init(conf Conf) error {
	log.SetReportCaller(false)
	log.SetFormatter(
		&log.TextFormatter{
			FullTimestamp: true,
		},
	)
	level := log.InfoLevel
	if conf.Internal.Level != "" {
		var err error
		level, err = log.ParseLevel(strings.ToLower(conf.Internal.Level))
		if err != nil {
			return errors.WithStack(err)
		}
	}
	log.SetLevel(level)

	out, err := newOutput(conf.Internal.OutputConf, internalLogFile)
	if err != nil {
		return err
	}
	log.SetOutput(out)

	accessLogger, err = newOutput(conf.Access, accessLogFile)
	return err
}

// AccessLogWriter returns the writer for the http access log
func AccessLogWriter() io.Writer {
	return accessLogger
}

// newOutput returns a writer for the given output configuration. Without a
// directory the log goes to stderr.
func newOutput(conf OutputConf, file string) (io.Writer, error) {
	if conf.Dir == "" {
		return os.Stderr, nil
	}
	f, err := os.OpenFile(filepath.Join(conf.Dir, file), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, errors.Wrap(err, "could not open log file")
	}
	if conf.StdErr {
		return io.MultiWriter(f, os.Stderr), nil
	}
	return f, nil
}
