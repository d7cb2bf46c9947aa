package config

// These tests verify that we can properly configure the data catalog service
// with YAML input.
import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// a valid service config entry
const VALID_SERVICE string = `
service:
  port: 8080
  max_connections: 100
  data_dir: /tmp/dcs
  site_url: http://localhost:8080
`

// a valid fetch config entry
const VALID_FETCH string = `
fetch:
  timeout: 15
  max_bytes: 1048576
`

// tests whether config.Init reports an error for blank input
func TestInitRejectsBlankInput(t *testing.T) {
	b := []byte("")
	err := Init(b)
	assert.NotNil(t, err, "Blank config didn't trigger an error.")
}

// tests whether config.Init reports an error for an invalid port
func TestInitRejectsBadPort(t *testing.T) {
	yaml := "service:\n  port: -1\n  data_dir: /tmp/dcs\n" + VALID_FETCH
	err := Init([]byte(yaml))
	assert.NotNil(t, err, "Config with bad port didn't trigger an error.")
	yaml = "service:\n  port: 1000000\n  data_dir: /tmp/dcs\n" + VALID_FETCH
	err = Init([]byte(yaml))
	assert.NotNil(t, err, "Config with bad port didn't trigger an error.")
}

// tests whether config.Init reports an error for an invalid max number of
// connections
func TestInitRejectsBadMaxConnections(t *testing.T) {
	yaml := "service:\n  max_connections: 0\n  data_dir: /tmp/dcs\n" + VALID_FETCH
	err := Init([]byte(yaml))
	assert.NotNil(t, err, "Config with bad max_connections didn't trigger an error.")
}

// tests whether config.Init rejects a configuration with no data directory
func TestInitRejectsMissingDataDir(t *testing.T) {
	yaml := "service:\n  port: 8080\n" + VALID_FETCH
	err := Init([]byte(yaml))
	assert.NotNil(t, err, "Config with no data_dir didn't trigger an error.")
}

// tests whether config.Init rejects a configuration with a bad site URL
func TestInitRejectsBadSiteURL(t *testing.T) {
	yaml := "service:\n  data_dir: /tmp/dcs\n  site_url: hahahahahahaha\n" + VALID_FETCH
	err := Init([]byte(yaml))
	assert.NotNil(t, err, "Config with bad site_url didn't trigger an error.")
}

// tests whether config.Init rejects invalid fetch parameters
func TestInitRejectsBadFetchParameters(t *testing.T) {
	yaml := VALID_SERVICE + "fetch:\n  timeout: 0\n"
	err := Init([]byte(yaml))
	assert.NotNil(t, err, "Config with bad fetch timeout didn't trigger an error.")
	yaml = VALID_SERVICE + "fetch:\n  max_bytes: -5\n"
	err = Init([]byte(yaml))
	assert.NotNil(t, err, "Config with bad fetch max_bytes didn't trigger an error.")
}

// Tests whether config.Init returns no error for a configuration that is
// (ostensibly) valid.
func TestInitAcceptsValidInput(t *testing.T) {
	yaml := VALID_SERVICE + VALID_FETCH
	err := Init([]byte(yaml))
	assert.Nil(t, err, fmt.Sprintf("Valid YAML input produced an error: %s", err))
}

// Tests whether config.Init properly initializes its globals for valid input.
func TestInitProperlySetsGlobals(t *testing.T) {
	yaml := VALID_SERVICE + VALID_FETCH
	err := Init([]byte(yaml))
	assert.Nil(t, err, fmt.Sprintf("Valid YAML input produced an error: %s", err))

	// Check data
	assert.Equal(t, 8080, Service.Port)
	assert.Equal(t, 100, Service.MaxConnections)
	assert.Equal(t, "/tmp/dcs", Service.DataDirectory)
	assert.Equal(t, "http://localhost:8080", Service.SiteURL)
	assert.Equal(t, 15, Fetch.Timeout)
	assert.Equal(t, int64(1048576), Fetch.MaxBytes)
}

// Tests whether environment variables are expanded in config input.
func TestInitExpandsEnvironmentVariables(t *testing.T) {
	os.Setenv("DCS_TEST_DATA_DIR", "/tmp/dcs-env")
	defer os.Unsetenv("DCS_TEST_DATA_DIR")
	yaml := "service:\n  data_dir: ${DCS_TEST_DATA_DIR}\n" + VALID_FETCH
	err := Init([]byte(yaml))
	assert.Nil(t, err)
	assert.Equal(t, "/tmp/dcs-env", Service.DataDirectory)
}

// This runs setup, runs all tests, and does breakdown.
func TestMain(m *testing.M) {
	status := m.Run()
	os.Exit(status)
}
