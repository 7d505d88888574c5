package sshkeys

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"benchswarm/internal/logging"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keysPath = "/benchswarm/config/ssh_keys"

// KeyProvider defines the interface for SSH key management
type KeyProvider interface {
	// GetOrCreate retrieves existing keys or creates new ones
	GetOrCreate(ctx context.Context) (*KeyPair, error)
	// Save saves the key pair to storage
	Save(ctx context.Context, keyPair *KeyPair) error
	// Delete removes the keys from storage
	Delete(ctx context.Context) error
	// Close closes any connections
	Close() error
}

// EtcdKeyProvider stores SSH keys in etcd so repeated runs reuse one pair
type EtcdKeyProvider struct {
	client *clientv3.Client
}

type storedKeyPair struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// NewEtcdKeyProvider creates a new etcd-based key provider
func NewEtcdKeyProvider(endpoints []string) (*EtcdKeyProvider, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return &EtcdKeyProvider{client: cli}, nil
}

// GetOrCreate retrieves existing keys from etcd or creates new ones
func (p *EtcdKeyProvider) GetOrCreate(ctx context.Context) (*KeyPair, error) {
	resp, err := p.client.Get(ctx, keysPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get SSH keys from etcd: %w", err)
	}

	if len(resp.Kvs) > 0 {
		var stored storedKeyPair
		if err := json.Unmarshal(resp.Kvs[0].Value, &stored); err != nil {
			return nil, fmt.Errorf("failed to unmarshal SSH keys: %w", err)
		}
		logging.Logger().Info("Using existing SSH keys from etcd")
		return &KeyPair{
			PrivateKey: stored.PrivateKey,
			PublicKey:  stored.PublicKey,
		}, nil
	}

	logging.Logger().Info("No SSH keys found in etcd, generating new key pair")
	keyPair, err := Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate SSH key pair: %w", err)
	}

	if err := p.Save(ctx, keyPair); err != nil {
		return nil, fmt.Errorf("failed to save SSH keys to etcd: %w", err)
	}

	logging.Logger().Info("SSH keys generated and stored in etcd")
	return keyPair, nil
}

// Save saves the key pair to etcd
func (p *EtcdKeyProvider) Save(ctx context.Context, keyPair *KeyPair) error {
	data, err := json.Marshal(storedKeyPair{
		PrivateKey: keyPair.PrivateKey,
		PublicKey:  keyPair.PublicKey,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal SSH keys: %w", err)
	}
	if _, err := p.client.Put(ctx, keysPath, string(data)); err != nil {
		return fmt.Errorf("failed to store SSH keys in etcd: %w", err)
	}
	return nil
}

// Delete removes the keys from etcd
func (p *EtcdKeyProvider) Delete(ctx context.Context) error {
	if _, err := p.client.Delete(ctx, keysPath); err != nil {
		return fmt.Errorf("failed to delete SSH keys from etcd: %w", err)
	}
	return nil
}

// Close closes the etcd client connection
func (p *EtcdKeyProvider) Close() error {
	return p.client.Close()
}

// StaticKeyProvider serves a fixed in-memory key pair. Used by tests and by
// runs that bring their own keys.
type StaticKeyProvider struct {
	Keys *KeyPair
}

func (p *StaticKeyProvider) GetOrCreate(ctx context.Context) (*KeyPair, error) {
	if p.Keys == nil {
		keys, err := Generate()
		if err != nil {
			return nil, err
		}
		p.Keys = keys
	}
	return p.Keys, nil
}

func (p *StaticKeyProvider) Save(ctx context.Context, keyPair *KeyPair) error {
	p.Keys = keyPair
	return nil
}

func (p *StaticKeyProvider) Delete(ctx context.Context) error {
	p.Keys = nil
	return nil
}

func (p *StaticKeyProvider) Close() error { return nil }
