// Package cloudinit renders the cloud-config user-data handed to freshly
// provisioned VMs.
package cloudinit

import (
	"bytes"
	"fmt"
	"text/template"
)

const userDataTemplate = `#cloud-config
ssh_pwauth: no
users:
  - name: {{.Username}}
    sudo: ALL=(ALL) NOPASSWD:ALL
    shell: /bin/bash
    ssh_authorized_keys:
      - "{{.PublicKey}}"`

// UserDataParams holds the values substituted into the user-data template
type UserDataParams struct {
	Username  string
	PublicKey string
}

// UserData renders cloud-config user-data that creates a sudo-capable user
// with the given SSH public key
func UserData(username, publicKey string) (string, error) {
	tmpl, err := template.New("cloud-config").Parse(userDataTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse cloud-config template: %v", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, UserDataParams{Username: username, PublicKey: publicKey}); err != nil {
		return "", fmt.Errorf("failed to execute cloud-config template: %v", err)
	}

	return buf.String(), nil
}
