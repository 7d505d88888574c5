package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Cloud identifiers used as registry dispatch keys. A provider's spec and
// resource factories register under the same identifier.
const (
	ProviderGCP          = "GCP"
	ProviderAWS          = "AWS"
	ProviderDigitalOcean = "DigitalOcean"
	ProviderYandexCloud  = "YandexCloud"
)

// GCPConfig contains Google Cloud connection parameters
type GCPConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsPath string `yaml:"credentials_path"`
}

// AWSConfig contains AWS connection parameters
type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// DigitalOceanConfig contains DigitalOcean connection parameters
type DigitalOceanConfig struct {
	Token string `yaml:"token"`
}

// YandexCloudConfig contains Yandex Cloud connection parameters
type YandexCloudConfig struct {
	IAMToken string `yaml:"iam_token"`
	FolderID string `yaml:"folder_id"`
}

// ProviderConfig selects and configures the cloud provider (discriminated
// by Type)
type ProviderConfig struct {
	Type         string              `yaml:"type"`
	GCP          *GCPConfig          `yaml:"gcp,omitempty"`
	AWS          *AWSConfig          `yaml:"aws,omitempty"`
	DigitalOcean *DigitalOceanConfig `yaml:"digitalocean,omitempty"`
	YandexCloud  *YandexCloudConfig  `yaml:"yandex_cloud,omitempty"`
}

// EtcdConfig contains etcd connection parameters for run state and SSH keys
type EtcdConfig struct {
	Endpoints []string `yaml:"endpoints"`
}

// Config contains application configuration
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Etcd     EtcdConfig     `yaml:"etcd"`

	// Max number of VMs provisioned concurrently
	MaxWorkers int `yaml:"max_workers"`

	// Commands run on every VM before the workload starts
	SetupCommands []string `yaml:"setup_commands"`

	// Directory benchmark results are synced into
	ResultsDir string `yaml:"results_dir"`
}

// Load loads configuration from YAML file
func Load() (*Config, error) {
	config := &Config{
		MaxWorkers: 5,
		ResultsDir: "results",
		Etcd:       EtcdConfig{Endpoints: []string{"localhost:2379"}},
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "benchswarm.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	expandEnv(config)
	applyEnvOverrides(config)

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// expandEnv expands environment variables in string fields
func expandEnv(config *Config) {
	if config.Provider.GCP != nil {
		config.Provider.GCP.ProjectID = os.ExpandEnv(config.Provider.GCP.ProjectID)
		config.Provider.GCP.CredentialsPath = os.ExpandEnv(config.Provider.GCP.CredentialsPath)
	}
	if config.Provider.AWS != nil {
		config.Provider.AWS.Region = os.ExpandEnv(config.Provider.AWS.Region)
		config.Provider.AWS.AccessKeyID = os.ExpandEnv(config.Provider.AWS.AccessKeyID)
		config.Provider.AWS.SecretAccessKey = os.ExpandEnv(config.Provider.AWS.SecretAccessKey)
	}
	if config.Provider.DigitalOcean != nil {
		config.Provider.DigitalOcean.Token = os.ExpandEnv(config.Provider.DigitalOcean.Token)
	}
	if config.Provider.YandexCloud != nil {
		config.Provider.YandexCloud.IAMToken = os.ExpandEnv(config.Provider.YandexCloud.IAMToken)
		config.Provider.YandexCloud.FolderID = os.ExpandEnv(config.Provider.YandexCloud.FolderID)
	}
	for i, cmd := range config.SetupCommands {
		config.SetupCommands[i] = os.ExpandEnv(cmd)
	}
}

// applyEnvOverrides lets secrets come from the environment instead of the
// config file
func applyEnvOverrides(config *Config) {
	if token := os.Getenv("DO_TOKEN"); token != "" {
		if config.Provider.DigitalOcean == nil {
			config.Provider.DigitalOcean = &DigitalOceanConfig{}
		}
		config.Provider.DigitalOcean.Token = token
	}

	if token := os.Getenv("YC_TOKEN"); token != "" {
		if config.Provider.YandexCloud == nil {
			config.Provider.YandexCloud = &YandexCloudConfig{}
		}
		config.Provider.YandexCloud.IAMToken = token
	}
	if folderID := os.Getenv("YC_FOLDER_ID"); folderID != "" {
		if config.Provider.YandexCloud == nil {
			config.Provider.YandexCloud = &YandexCloudConfig{}
		}
		config.Provider.YandexCloud.FolderID = folderID
	}
}

// validate checks required parameters for the selected provider
func validate(config *Config) error {
	switch config.Provider.Type {
	case ProviderGCP:
		if config.Provider.GCP == nil || config.Provider.GCP.ProjectID == "" {
			return fmt.Errorf("GCP project ID is required (set provider.gcp.project_id in config file)")
		}
	case ProviderAWS:
		if config.Provider.AWS == nil || config.Provider.AWS.Region == "" {
			return fmt.Errorf("AWS region is required (set provider.aws.region in config file)")
		}
	case ProviderDigitalOcean:
		if config.Provider.DigitalOcean == nil || config.Provider.DigitalOcean.Token == "" {
			return fmt.Errorf("DigitalOcean token is required (set provider.digitalocean.token in config file or DO_TOKEN environment variable)")
		}
	case ProviderYandexCloud:
		if config.Provider.YandexCloud == nil || config.Provider.YandexCloud.IAMToken == "" {
			return fmt.Errorf("IAM token is required (set provider.yandex_cloud.iam_token in config file or YC_TOKEN environment variable)")
		}
		if config.Provider.YandexCloud.FolderID == "" {
			return fmt.Errorf("Folder ID is required (set provider.yandex_cloud.folder_id in config file or YC_FOLDER_ID environment variable)")
		}
	case "":
		return fmt.Errorf("provider type is required (set provider.type in config file)")
	default:
		return fmt.Errorf("unsupported provider type: %s", config.Provider.Type)
	}

	if config.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1")
	}

	return nil
}
