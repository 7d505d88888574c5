// Package control executes commands and transfers files on provisioned VMs.
package control

import (
	"io"
	"time"
)

// Controller defines the interface for remote system control
type Controller interface {
	// Close closes the connection
	Close() error

	// Run executes a command on the remote host
	Run(command string) error

	// OpenFile opens a remote file with standard os flags
	OpenFile(path string, flags int) (io.ReadWriteCloser, error)

	// GetInstanceName returns the instance name
	GetInstanceName() string

	// Sync copies a file or directory from remote host to local machine
	// using SFTP. Detects whether the path is a file or directory and
	// handles accordingly.
	Sync(remotePath, localPath string) error
}

// Config defines configuration for creating controllers
type Config struct {
	Host         string
	User         string
	PrivateKey   string // PEM-encoded private key content
	Timeout      time.Duration
	SSHTimeout   time.Duration
	InstanceName string
}

// Factory builds a Controller for a config. The runner takes a Factory so
// tests can substitute mock controllers.
type Factory func(Config) (Controller, error)

// NewController creates a new controller based on the config
func NewController(config Config) (Controller, error) {
	// For now, only SSH is supported
	return NewSSH(SSHConfig{
		Host:         config.Host,
		User:         config.User,
		PrivateKey:   config.PrivateKey,
		Timeout:      config.Timeout,
		SSHTimeout:   config.SSHTimeout,
		InstanceName: config.InstanceName,
	})
}
