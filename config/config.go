package config

import (
	"fmt"
	"log"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// a type with service configuration parameters
type serviceConfig struct {
	// name under which the service reports itself
	Name string `json:"name" yaml:"name"`
	// port on which the service listens
	Port int `json:"port" yaml:"port"`
	// maximum number of allowed incoming connections
	MaxConnections int `json:"max_connections" yaml:"max_connections"`
	// directory in which the catalog store, activity log, and uploaded
	// resource files are kept
	DataDirectory string `json:"data_dir" yaml:"data_dir"`
	// base URL used to form public URLs for uploaded resource files
	SiteURL string `json:"site_url" yaml:"site_url"`
	// fernet key used to decrypt the API access token file
	// DO NOT STORE THIS IN A CONFIG FILE! Use an environment variable instead
	Secret string `json:"secret" yaml:"secret"`
}

// a type with parameters governing outbound HTTP fetches (descriptors and
// bundled archives)
type fetchConfig struct {
	// timeout for outbound requests (seconds)
	Timeout int `json:"timeout" yaml:"timeout"`
	// upper size bound for any fetched or uploaded payload (bytes)
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`
}

// global config variables
var Service serviceConfig
var Fetch fetchConfig

// This struct performs the unmarshalling from the YAML config file and then
// copies its fields to the globals above.
type configFile struct {
	Service serviceConfig `yaml:"service"`
	Fetch   fetchConfig   `yaml:"fetch"`
}

// This helper reads configuration data, returning an error indicating success
// or failure. All environment variables of the form ${ENV_VAR} are expanded.
func readConfig(bytes []byte) error {
	// Before we do anything else, expand any provided environment variables.
	bytes = []byte(os.ExpandEnv(string(bytes)))

	var conf configFile
	conf.Service.Name = "DCS"
	conf.Service.Port = 8080
	conf.Service.MaxConnections = 100
	conf.Fetch.Timeout = 30
	conf.Fetch.MaxBytes = 64 * 1024 * 1024
	err := yaml.Unmarshal(bytes, &conf)
	if err != nil {
		log.Printf("Couldn't parse configuration data: %s\n", err)
		return err
	}

	// copy the config data into place
	Service = conf.Service
	Fetch = conf.Fetch

	return err
}

// This helper validates the given service parameters, returning an
// error indicating success or failure.
func validateServiceParameters(params serviceConfig) error {
	if params.Port < 0 || params.Port > 65535 {
		return fmt.Errorf("Invalid port: %d (must be 0-65535)", params.Port)
	}
	if params.MaxConnections <= 0 {
		return fmt.Errorf("Invalid max_connections: %d (must be positive)",
			params.MaxConnections)
	}
	if params.DataDirectory == "" {
		return fmt.Errorf("No data_dir was provided!")
	}
	if params.SiteURL != "" {
		u, err := url.Parse(params.SiteURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("Invalid site_url: %s", params.SiteURL)
		}
	}
	return nil
}

// This helper validates the given fetch parameters, returning an error
// indicating success or failure.
func validateFetchParameters(params fetchConfig) error {
	if params.Timeout <= 0 {
		return fmt.Errorf("Invalid fetch timeout: %d (must be positive)",
			params.Timeout)
	}
	if params.MaxBytes <= 0 {
		return fmt.Errorf("Invalid fetch max_bytes: %d (must be positive)",
			params.MaxBytes)
	}
	return nil
}

// This helper validates the config globals, returning an error that indicates
// success or failure.
func validateConfig() error {
	err := validateServiceParameters(Service)
	if err != nil {
		return err
	}
	return validateFetchParameters(Fetch)
}

// Initializes the data catalog service configuration using the given YAML
// byte data.
func Init(yamlData []byte) error {

	// Read the configuration from our YAML data.
	err := readConfig(yamlData)
	if err != nil {
		return err
	}

	// Validate the configuration.
	err = validateConfig()
	return err
}
