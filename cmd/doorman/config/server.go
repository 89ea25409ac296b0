package config

import (
	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/doorman-auth/doorman"
)

var defaultServerConf = doorman.ServerConf{
	Port: 8000,
}

func validateServer(c doorman.ServerConf) error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if !c.TLS.Enabled {
		if c.Port == 0 {
			return errors.New("port must be specified")
		}
		return nil
	}
	if c.TLS.Cert == "" || c.TLS.Key == "" {
		return errors.New("tls is enabled, but cert or key is not set")
	}
	for _, f := range []string{c.TLS.Cert, c.TLS.Key} {
		if !fileutils.FileExists(f) {
			return errors.Errorf("tls file '%s' does not exist", f)
		}
	}
	return nil
}
