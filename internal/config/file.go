package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file probed when --config is not given.
const DefaultFileName = "magickbatch.yaml"

// fileConfig mirrors Config for YAML decoding. Bool and numeric fields are
// pointers so an absent key is distinguishable from an explicit zero value.
type fileConfig struct {
	Command     string         `yaml:"command"`
	CommandArgs []string       `yaml:"command_args"`
	InputDir    string         `yaml:"input"`
	OutputDir   string         `yaml:"output"`
	Format      string         `yaml:"format"`
	Suffix      string         `yaml:"suffix"`
	ToolPath    string         `yaml:"tool_path"`
	Jobs        *int           `yaml:"jobs"`
	Timeout     *time.Duration `yaml:"timeout"`
	FailFast    *bool          `yaml:"fail_fast"`
	SkipExist   *bool          `yaml:"skip_existing"`
	LogFile     string         `yaml:"log"`
	ListingURL  string         `yaml:"listing_url"`
	ScriptDir   string         `yaml:"script_dir"`
}

// ApplyFile layers settings from a YAML config file onto cfg. When path is
// empty the default file is probed and silently skipped if absent; an
// explicitly named file must exist.
func ApplyFile(cfg *Config, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return wrapError(err, "cannot read config file %s", path)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return wrapError(err, "cannot parse config file %s", path)
	}

	setString(&cfg.Command, fc.Command)
	if len(fc.CommandArgs) > 0 {
		cfg.CommandArgs = fc.CommandArgs
	}
	setString(&cfg.InputDir, fc.InputDir)
	setString(&cfg.OutputDir, fc.OutputDir)
	setString(&cfg.Format, fc.Format)
	setString(&cfg.Suffix, fc.Suffix)
	setString(&cfg.ToolPath, fc.ToolPath)
	setString(&cfg.LogFile, fc.LogFile)
	setString(&cfg.ListingURL, fc.ListingURL)
	setString(&cfg.ScriptDir, fc.ScriptDir)
	if fc.Jobs != nil {
		cfg.Jobs = *fc.Jobs
	}
	if fc.Timeout != nil {
		cfg.Timeout = *fc.Timeout
	}
	if fc.FailFast != nil {
		cfg.FailFast = *fc.FailFast
	}
	if fc.SkipExist != nil {
		cfg.SkipExisting = *fc.SkipExist
	}
	return nil
}

// ApplyEnv layers settings from the process environment onto cfg, loading a
// .env file first when one is present. Variables use the MAGICKBATCH_
// prefix and override the config file but not CLI flags.
func ApplyEnv(cfg *Config) error {
	// Missing .env is fine; the environment alone still applies.
	_ = godotenv.Load()

	setEnvString(&cfg.Command, "MAGICKBATCH_COMMAND")
	setEnvString(&cfg.InputDir, "MAGICKBATCH_INPUT")
	setEnvString(&cfg.OutputDir, "MAGICKBATCH_OUTPUT")
	setEnvString(&cfg.Format, "MAGICKBATCH_FORMAT")
	setEnvString(&cfg.Suffix, "MAGICKBATCH_SUFFIX")
	setEnvString(&cfg.ToolPath, "MAGICKBATCH_TOOLPATH")
	setEnvString(&cfg.LogFile, "MAGICKBATCH_LOG")
	setEnvString(&cfg.ListingURL, "MAGICKBATCH_LISTING_URL")
	setEnvString(&cfg.ScriptDir, "MAGICKBATCH_SCRIPT_DIR")

	if v := os.Getenv("MAGICKBATCH_JOBS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Errorf("MAGICKBATCH_JOBS must be a whole number (got %q)", v)
		}
		cfg.Jobs = n
	}
	if v := os.Getenv("MAGICKBATCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Errorf("MAGICKBATCH_TIMEOUT must be a duration like 30s (got %q)", v)
		}
		cfg.Timeout = d
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setEnvString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
