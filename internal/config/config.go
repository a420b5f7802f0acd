// Package config provides functionality for managing configuration options
// for the admin server using command-line flags, a config file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Deployment profiles selecting the PhotoTrack API origin.
const (
	ProfileTest       = "test"
	ProfileProduction = "production"
)

// API origins of the test deployment. REST calls go through APIServer,
// images are linked from APIPath.
const (
	TestAPIServer = "http://localhost:9292/192.169.1.106:8001"
	TestAPIPath   = "http://192.169.1.106:8001"
)

// API origins of the production deployment, where the API is mounted
// under /phototrackserver next to the admin front-end.
const (
	ProductionAPIServer = "http://localhost:8000"
	ProductionAPIPath   = "/phototrackserver"
)

// DefaultGeocoderURL is the Google Geocoding web service endpoint.
const DefaultGeocoderURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"port" toml:"port"`

	// Profile selects the default API origins ("test" or "production").
	Profile string `json:"profile" toml:"profile"`

	// APIServer is the base URL the server uses for REST calls.
	APIServer string `json:"api_server" toml:"api_server"`

	// APIPath is the base URL browsers use for photo images and archives.
	APIPath string `json:"api_path" toml:"api_path"`

	// CAFile, CertFile and KeyFile configure TLS towards the API.
	CAFile   string `json:"ca_file" toml:"ca_file"`
	CertFile string `json:"cert_file" toml:"cert_file"`
	KeyFile  string `json:"key_file" toml:"key_file"`

	// Timeout bounds every call to the API and the geocoder.
	Timeout Duration `json:"timeout" toml:"timeout"`

	// GeocoderURL is the geocoding endpoint.
	GeocoderURL string `json:"geocoder_url" toml:"geocoder_url"`

	// GeocoderKey is the API key sent to the geocoder, if any.
	GeocoderKey string `json:"geocoder_key" toml:"geocoder_key"`

	// LogLevel is the minimum zap level.
	LogLevel string `json:"log_level" toml:"log_level"`

	// MaxUpload is the largest accepted photo upload in bytes.
	MaxUpload int64 `json:"max_upload" toml:"max_upload"`

	// Config is the path to the Config file.
	Config string `json:"-" toml:"-"`
}

// Duration is a time.Duration read from text such as "15s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON and TOML.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Parse reads the configuration from args (without the program name).
// Precedence, lowest first: flag defaults and values, the config file,
// environment variables (a .env file in the working directory is loaded
// first). Empty API origins fall back to the selected profile.
func Parse(args []string) (*Options, error) {
	_ = godotenv.Load()

	options := &Options{}
	fs := flag.NewFlagSet("phototrack-admin", flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.Profile, "profile", ProfileTest, "deployment profile: test | production")
	fs.StringVar(&options.APIServer, "api", "", "PhotoTrack API base URL for REST calls")
	fs.StringVar(&options.APIPath, "api-path", "", "PhotoTrack API base URL used by browsers")
	fs.StringVar(&options.CAFile, "ca", "", "path to CA bundle of the API")
	fs.StringVar(&options.CertFile, "cert", "", "path to client cert for the API")
	fs.StringVar(&options.KeyFile, "key", "", "path to client key for the API")
	fs.DurationVar(&options.Timeout.Duration, "timeout", 10*time.Second, "API and geocoder request timeout")
	fs.StringVar(&options.GeocoderURL, "geocoder", DefaultGeocoderURL, "geocoding endpoint")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.Int64Var(&options.MaxUpload, "max-upload", 20<<20, "maximum photo upload size in bytes")
	fs.StringVar(&options.Config, "config", "", "path to config file (.json or .toml)")
	fs.StringVar(&options.Config, "c", "", "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if err := ReadFile(options.Config, options); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(options); err != nil {
		return nil, err
	}

	if err := options.ApplyProfile(); err != nil {
		return nil, err
	}
	return options, nil
}

// ApplyProfile fills the API origins left empty from the selected profile.
func (o *Options) ApplyProfile() error {
	var server, path string
	switch o.Profile {
	case ProfileTest:
		server, path = TestAPIServer, TestAPIPath
	case ProfileProduction:
		server, path = ProductionAPIServer, ProductionAPIPath
	default:
		return fmt.Errorf("unknown profile %q", o.Profile)
	}
	if o.APIServer == "" {
		o.APIServer = server
	}
	if o.APIPath == "" {
		o.APIPath = path
	}
	return nil
}

// ReadFile overlays the options with the content of a JSON or TOML file.
// A missing file is ignored.
func ReadFile(path string, options *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), options); err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, options); err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
	}
	return nil
}

// ApplyEnv overlays the options with the environment variables that are set.
func ApplyEnv(options *Options) error {
	strs := map[string]*string{
		"SERVER_ADDRESS":     &options.Port,
		"PHOTOTRACK_PROFILE": &options.Profile,
		"API_SERVER":         &options.APIServer,
		"API_PATH":           &options.APIPath,
		"GEOCODER_URL":       &options.GeocoderURL,
		"GEOCODER_KEY":       &options.GeocoderKey,
		"LOG_LEVEL":          &options.LogLevel,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("API_TIMEOUT"); v != "" {
		if err := options.Timeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid API_TIMEOUT: %w", err)
		}
	}
	if v := os.Getenv("MAX_UPLOAD"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD: %w", err)
		}
		options.MaxUpload = n
	}
	return nil
}
