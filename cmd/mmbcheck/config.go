package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const configName = "mmbcheck.toml"

// fileConfig mirrors mmbcheck.toml. Unset keys keep the flag defaults.
type fileConfig struct {
	Verify verifyConfig `toml:"verify"`
	Trace  traceConfig  `toml:"trace"`
}

type verifyConfig struct {
	Jobs       *int    `toml:"jobs"`
	UnifyJobs  *int    `toml:"unify_jobs"`
	Unify      *bool   `toml:"unify"`
	AllowSorry *bool   `toml:"allow_sorry"`
	Cache      *bool   `toml:"cache"`
	UI         *string `toml:"ui"`
}

type traceConfig struct {
	Level  *string `toml:"level"`
	Mode   *string `toml:"mode"`
	Output *string `toml:"output"`
}

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func readConfig(path string) (*fileConfig, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return &cfg, nil
}

// loadConfig applies mmbcheck.toml to every flag the user did not set on
// the command line.
func loadConfig(cmd *cobra.Command) error {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return err
	}
	if path == "" {
		var ok bool
		path, ok, err = findConfig(".")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	cfg, err := readConfig(path)
	if err != nil {
		return err
	}
	return cfg.apply(cmd)
}

func (c *fileConfig) apply(cmd *cobra.Command) error {
	local := cmd.Flags()
	persistent := cmd.Root().PersistentFlags()
	set := []struct {
		flags *pflag.FlagSet
		name  string
		value string
		ok    bool
	}{
		{local, "jobs", intValue(c.Verify.Jobs), c.Verify.Jobs != nil},
		{local, "unify-jobs", intValue(c.Verify.UnifyJobs), c.Verify.UnifyJobs != nil},
		{local, "unify", boolValue(c.Verify.Unify), c.Verify.Unify != nil},
		{local, "allow-sorry", boolValue(c.Verify.AllowSorry), c.Verify.AllowSorry != nil},
		{local, "no-cache", boolValue(negate(c.Verify.Cache)), c.Verify.Cache != nil},
		{local, "ui", stringValue(c.Verify.UI), c.Verify.UI != nil},
		{persistent, "trace-level", stringValue(c.Trace.Level), c.Trace.Level != nil},
		{persistent, "trace-mode", stringValue(c.Trace.Mode), c.Trace.Mode != nil},
		{persistent, "trace", stringValue(c.Trace.Output), c.Trace.Output != nil},
	}
	for _, s := range set {
		if !s.ok {
			continue
		}
		f := s.flags.Lookup(s.name)
		// commands without the flag ignore the key
		if f == nil || f.Changed {
			continue
		}
		if err := f.Value.Set(s.value); err != nil {
			return fmt.Errorf("config %s: %w", s.name, err)
		}
	}
	return nil
}

func intValue(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func boolValue(p *bool) string {
	if p == nil {
		return ""
	}
	return strconv.FormatBool(*p)
}

func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func negate(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := !*p
	return &v
}
