package config

import (
	"github.com/ssoonwee/bonafide/pkg/metadata"
	"github.com/ssoonwee/bonafide/pkg/storage"
)

// ApplicationConfiguration contains client-side settings not related to
// the chain.
type ApplicationConfiguration struct {
	DBConfiguration storage.DBConfiguration `yaml:"DBConfiguration"`

	LogLevel string `yaml:"LogLevel"`
	LogPath  string `yaml:"LogPath"`
	// LogMaxSize is the maximum size of the log file in megabytes before
	// it gets rotated.
	LogMaxSize int `yaml:"LogMaxSize"`
	// LogMaxBackups is the maximum number of rotated files to keep.
	LogMaxBackups int `yaml:"LogMaxBackups"`
	// LogMaxAge is the maximum number of days to keep rotated files.
	LogMaxAge int `yaml:"LogMaxAge"`

	Metadata     metadata.Config `yaml:"Metadata"`
	Pprof        BasicService    `yaml:"Pprof"`
	Prometheus   BasicService    `yaml:"Prometheus"`
	Webapp       Webapp          `yaml:"Webapp"`
	UnlockWallet Wallet          `yaml:"UnlockWallet"`
}

// Wallet is a keystore file with the password to unlock it.
type Wallet struct {
	Path     string `yaml:"Path"`
	Password string `yaml:"Password"`
}
