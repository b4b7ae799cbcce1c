package handler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mailfwd/ses-mail-forwarder/mapping"
)

// Options is the static configuration for one forwarder process, loaded
// once at startup and read-only afterwards.
type Options struct {
	BucketName       string        `yaml:"bucket_name"`
	IncomingPrefix   string        `yaml:"incoming_prefix"`
	FromEmail        string        `yaml:"from_email"`
	SubjectPrefix    string        `yaml:"subject_prefix"`
	ToEmail          string        `yaml:"to_email"`
	AllowPlusSign    bool          `yaml:"allow_plus_sign"`
	ConfigurationSet string        `yaml:"configuration_set"`
	ForwardMapping   mapping.Table `yaml:"forward_mapping"`
}

// GetOptions builds Options from an optional YAML config file named by
// CONFIG_FILE, then applies environment variable overrides. The forwarding
// table may be overridden wholesale with JSON in FORWARD_MAPPING. Mapping
// keys are normalized to lowercase; every mapping entry must name at least
// one destination.
func GetOptions(
	getenv func(string) string, readFile func(string) ([]byte, error),
) (*Options, error) {
	opts := &Options{AllowPlusSign: true}

	if path := getenv("CONFIG_FILE"); path != "" {
		data, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %s", err)
		}
		if err := yaml.Unmarshal(data, opts); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %s", err)
		}
	}

	if err := applyEnv(opts, getenv); err != nil {
		return nil, err
	}
	if err := validate(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func applyEnv(opts *Options, getenv func(string) string) error {
	assign := func(opt *string, varname string) {
		if value := getenv(varname); value != "" {
			*opt = value
		}
	}
	assign(&opts.BucketName, "BUCKET_NAME")
	assign(&opts.IncomingPrefix, "INCOMING_PREFIX")
	assign(&opts.FromEmail, "FROM_EMAIL")
	assign(&opts.SubjectPrefix, "SUBJECT_PREFIX")
	assign(&opts.ToEmail, "TO_EMAIL")
	assign(&opts.ConfigurationSet, "CONFIGURATION_SET")

	if value := getenv("ALLOW_PLUS_SIGN"); value != "" {
		allow, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid ALLOW_PLUS_SIGN value %q: %s", value, err)
		}
		opts.AllowPlusSign = allow
	}
	if value := getenv("FORWARD_MAPPING"); value != "" {
		table := mapping.Table{}
		if err := json.Unmarshal([]byte(value), &table); err != nil {
			return fmt.Errorf("invalid FORWARD_MAPPING value: %s", err)
		}
		opts.ForwardMapping = table
	}
	return nil
}

func validate(opts *Options) error {
	var missing []string
	if opts.BucketName == "" {
		missing = append(missing, "BUCKET_NAME")
	}
	if len(opts.ForwardMapping) == 0 {
		missing = append(missing, "FORWARD_MAPPING")
	}
	if len(missing) != 0 {
		return &MissingSettingsError{Settings: missing}
	}

	normalized := make(mapping.Table, len(opts.ForwardMapping))
	for key, destinations := range opts.ForwardMapping {
		if len(destinations) == 0 {
			return fmt.Errorf("forward mapping for %q has no destinations", key)
		}
		normalized[strings.ToLower(key)] = destinations
	}
	opts.ForwardMapping = normalized
	return nil
}
