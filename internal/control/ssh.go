package control

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"benchswarm/internal/logging"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

const sshPort = "22"

// SSH drives one benchmark VM over an SSH connection. A single SFTP
// session on top of it handles result syncing.
type SSH struct {
	client       *ssh.Client
	sftpClient   *sftp.Client
	host         string
	user         string
	instanceName string
	timeout      time.Duration
}

// SSHConfig holds configuration for SSH connection
type SSHConfig struct {
	Host         string
	User         string
	PrivateKey   string // PEM-encoded private key content
	Timeout      time.Duration
	SSHTimeout   time.Duration
	InstanceName string
}

// NewSSH connects to a freshly provisioned VM. It blocks until the SSH
// port answers, since cloud instances report running well before sshd
// accepts connections.
func NewSSH(config SSHConfig) (*SSH, error) {
	if config.PrivateKey == "" {
		return nil, fmt.Errorf("PrivateKey must be provided")
	}
	signer, err := ssh.ParsePrivateKey([]byte(config.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	if err := waitForSSH(config.Host, config.Timeout); err != nil {
		return nil, fmt.Errorf("SSH not available after timeout: %w", err)
	}

	clientConfig := &ssh.ClientConfig{
		User: config.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // VMs are ephemeral, host keys are fresh every run
		Timeout:         config.SSHTimeout,
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(config.Host, sshPort), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}

	logging.Logger().Info("connected to instance",
		zap.String("user", config.User),
		zap.String("host", config.Host),
		zap.String("instance_name", config.InstanceName))

	return &SSH{
		client:       client,
		sftpClient:   sftpClient,
		host:         config.Host,
		user:         config.User,
		instanceName: config.InstanceName,
		timeout:      config.Timeout,
	}, nil
}

// Close closes the SFTP and SSH connections
func (s *SSH) Close() error {
	if s.sftpClient != nil {
		safeClose("SFTP client", s.sftpClient.Close)
	}
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// GetInstanceName returns the instance name
func (s *SSH) GetInstanceName() string {
	return s.instanceName
}

// Run executes a command on the VM. On failure the returned error
// carries the tail of stderr so the run record shows what the workload
// actually printed.
func (s *SSH) Run(command string) error {
	session, err := s.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer safeClose("SSH session", session.Close)

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	logging.Logger().Debug("executing remote command",
		zap.String("command", logging.Truncate(command)),
		zap.String("instance_name", s.instanceName))

	err = session.Run(command)

	logging.Logger().Info("remote command finished",
		zap.String("command", logging.Truncate(command)),
		zap.String("instance_name", s.instanceName),
		zap.String("stdout", escapeNewlines(logging.Truncate(stdout.String()))),
		zap.String("stderr", escapeNewlines(logging.Truncate(stderr.String()))),
		zap.Bool("success", err == nil))

	if err != nil {
		if tail := stderrTail(stderr.String()); tail != "" {
			return fmt.Errorf("%w: %s", err, tail)
		}
		return err
	}
	return nil
}

// OpenFile opens a remote file for reading and/or writing.
// Uses standard os flags: os.O_RDONLY, os.O_WRONLY, os.O_RDWR, os.O_CREATE, os.O_TRUNC, etc.
func (s *SSH) OpenFile(path string, flags int) (io.ReadWriteCloser, error) {
	file, err := s.sftpClient.OpenFile(path, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file %s: %w", path, err)
	}
	return file, nil
}

// Sync copies the results path from the VM to the local machine over
// SFTP. Works for a single result file as well as a whole directory of
// output.
func (s *SSH) Sync(remotePath, localPath string) error {
	remoteInfo, err := s.sftpClient.Stat(remotePath)
	if err != nil {
		return fmt.Errorf("failed to stat remote path: %w", err)
	}

	if remoteInfo.IsDir() {
		return s.fetchTree(remotePath, localPath)
	}

	bytesWritten, err := s.fetchFile(remotePath, localPath, remoteInfo.Mode())
	if err != nil {
		return err
	}

	logging.Logger().Info("results file synced",
		zap.String("remote_path", remotePath),
		zap.String("local_path", localPath),
		zap.String("instance_name", s.instanceName),
		zap.Int64("size_bytes", bytesWritten))
	return nil
}

// fetchFile copies a single remote file to localPath, creating parent
// directories as needed.
func (s *SSH) fetchFile(remotePath, localPath string, fileMode os.FileMode) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create local directory: %w", err)
	}

	remoteFile, err := s.sftpClient.Open(remotePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open remote file: %w", err)
	}
	defer safeClose("remote file", remoteFile.Close)

	localFile, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create local file: %w", err)
	}
	defer safeClose("local file", localFile.Close)

	bytesWritten, err := localFile.ReadFrom(remoteFile)
	if err != nil {
		return 0, fmt.Errorf("failed to copy file content: %w", err)
	}

	if err := os.Chmod(localPath, fileMode); err != nil {
		logging.Logger().Warn("failed to set file permissions",
			zap.String("path", localPath),
			zap.Error(err))
	}

	return bytesWritten, nil
}

// fetchTree recursively copies a remote directory to localPath.
func (s *SSH) fetchTree(remotePath, localPath string) error {
	if err := os.MkdirAll(localPath, 0755); err != nil {
		return fmt.Errorf("failed to create local directory: %w", err)
	}

	var filesCopied, totalBytes int64

	walker := s.sftpClient.Walk(remotePath)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return fmt.Errorf("failed to walk remote directory: %w", err)
		}

		relPath, err := filepath.Rel(remotePath, walker.Path())
		if err != nil {
			return fmt.Errorf("failed to calculate relative path: %w", err)
		}
		if relPath == "." {
			continue
		}

		localFilePath := filepath.Join(localPath, relPath)
		info := walker.Stat()

		if info.IsDir() {
			if err := os.MkdirAll(localFilePath, info.Mode()); err != nil {
				return fmt.Errorf("failed to create local directory: %w", err)
			}
			continue
		}

		bytesWritten, err := s.fetchFile(walker.Path(), localFilePath, info.Mode())
		if err != nil {
			return err
		}
		filesCopied++
		totalBytes += bytesWritten
	}

	logging.Logger().Info("results directory synced",
		zap.String("remote_path", remotePath),
		zap.String("local_path", localPath),
		zap.String("instance_name", s.instanceName),
		zap.Int64("files_copied", filesCopied),
		zap.Int64("total_bytes", totalBytes))

	return nil
}

// waitForSSH polls the SSH port until it accepts a TCP connection or
// the timeout expires.
func waitForSSH(host string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for attempt := 1; time.Now().Before(deadline); attempt++ {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, sshPort), 5*time.Second)
		if err == nil {
			safeClose("probe connection", conn.Close)
			return nil
		}

		logging.Logger().Debug("waiting for SSH",
			zap.String("host", host),
			zap.Int("attempt", attempt))
		time.Sleep(10 * time.Second)
	}

	return fmt.Errorf("SSH port not available after %v timeout", timeout)
}

// stderrTail returns the last non-empty line of stderr, truncated for
// inclusion in an error message.
func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return logging.Truncate(line)
		}
	}
	return ""
}

// escapeNewlines escapes newline characters for proper log formatting
func escapeNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}

// safeClose closes a resource and logs instead of failing when the
// close errors.
func safeClose(name string, closer func() error) {
	if err := closer(); err != nil {
		logging.Logger().Warn("failed to close resource",
			zap.String("resource", name),
			zap.Error(err))
	}
}
