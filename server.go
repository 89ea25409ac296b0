package doorman

import (
	"github.com/zachmann/go-utils/duration"
)

// ServerConf configures the http server
type ServerConf struct {
	IPListen          string   `yaml:"ip_listen"`
	Port              int      `yaml:"port"`
	TLS               tlsConf  `yaml:"tls"`
	TrustedProxies    []string `yaml:"trusted_proxies"`
	ForwardedIPHeader string   `yaml:"forwarded_ip_header"`
	Timeouts          timeouts `yaml:"timeouts"`
}

type tlsConf struct {
	Enabled      bool   `yaml:"enabled"`
	RedirectHTTP bool   `yaml:"redirect_http"`
	Cert         string `yaml:"cert"`
	Key          string `yaml:"key"`
}

// timeouts overrides the timeouts of FiberServerConfig; zero values keep
// the defaults
type timeouts struct {
	Read  duration.DurationOption `yaml:"read"`
	Write duration.DurationOption `yaml:"write"`
	Idle  duration.DurationOption `yaml:"idle"`
}
