package config

import (
	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/doorman-auth/doorman/internal/logger"
)

// YAML example:
//
//	logging:
//	  access:
//	    dir: /var/log/doorman
//	    stderr: false
//	  internal:
//	    dir: /var/log/doorman
//	    stderr: false
//	    level: INFO
var defaultLoggingConf = logger.Conf{
	Internal: logger.InternalConf{
		Level: "INFO",
	},
}

func checkLoggingDirExists(dir string) error {
	if dir != "" && !fileutils.FileExists(dir) {
		return errors.Errorf("logging directory '%s' does not exist", dir)
	}
	return nil
}

func validateLogging(c logger.Conf) error {
	if err := checkLoggingDirExists(c.Access.Dir); err != nil {
		return err
	}
	return checkLoggingDirExists(c.Internal.Dir)
}
