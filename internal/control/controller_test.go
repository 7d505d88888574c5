package control

import (
	"testing"
)

func TestSSH_GetInstanceName(t *testing.T) {
	// No real connection needed to exercise the accessor
	ssh := &SSH{
		client:       nil,
		host:         "test-host",
		user:         "test-user",
		instanceName: "bench-instance-123",
	}

	if got := ssh.GetInstanceName(); got != "bench-instance-123" {
		t.Errorf("GetInstanceName() = %q, want %q", got, "bench-instance-123")
	}
}

func TestSSH_GetInstanceName_Empty(t *testing.T) {
	ssh := &SSH{
		client:       nil,
		host:         "test-host",
		user:         "test-user",
		instanceName: "",
	}

	if got := ssh.GetInstanceName(); got != "" {
		t.Errorf("GetInstanceName() = %q, want empty", got)
	}
}

func TestEscapeNewlines(t *testing.T) {
	if got := escapeNewlines("a\nb\nc"); got != "a\\nb\\nc" {
		t.Errorf("escapeNewlines() = %q", got)
	}
}

func TestStderrTail(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \n\t\n", ""},
		{"single line", "fio: permission denied", "fio: permission denied"},
		{"last non-empty line wins", "warning: x\nfio: io_u error\n\n", "fio: io_u error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stderrTail(tt.stderr); got != tt.want {
				t.Errorf("stderrTail(%q) = %q, want %q", tt.stderr, got, tt.want)
			}
		})
	}
}
