package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"tttevo/internal/eval"
	"tttevo/internal/evo"
	"tttevo/internal/storage"
	"tttevo/pkg/tttevo"
)

const envPrefix = "TTTEVO_"

// settings collects every knob a subcommand may read. Precedence from low to
// high: built-in defaults, TTTEVO_* environment, --config file, explicit flags.
type settings struct {
	Store    string
	DBPath   string
	Dir      string
	Geometry string
	Player   int
	Opponent int
	Seed     int64
	Rate     float64
	Scale    float64
	Operator string
	Workers  int
	Verbose  bool
	Config   string
}

func defaultSettings() settings {
	symbols := eval.DefaultSymbols()
	return settings{
		Store:    storage.DefaultStoreKind(),
		Geometry: "default",
		Player:   symbols.Player,
		Opponent: symbols.Opponent,
		Rate:     evo.DefaultMutationRate,
		Scale:    evo.DefaultMutationScale,
		Operator: "gaussian_mask",
	}
}

// newFlagSet registers the shared flags on a subcommand's flag set.
func newFlagSet(name string, s *settings) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&s.Store, "store", s.Store, "store backend: memory|file|sqlite")
	fs.StringVar(&s.DBPath, "db-path", s.DBPath, "sqlite database file")
	fs.StringVar(&s.Dir, "dir", s.Dir, "file store directory")
	fs.StringVar(&s.Geometry, "geometry", s.Geometry, "board geometry: default|reference")
	fs.IntVar(&s.Player, "player", s.Player, "cell code of the scored player")
	fs.IntVar(&s.Opponent, "opponent", s.Opponent, "cell code of the opponent")
	fs.Int64Var(&s.Seed, "seed", s.Seed, "random seed (0 uses the clock)")
	fs.BoolVar(&s.Verbose, "verbose", s.Verbose, "log diagnostics to stderr")
	fs.StringVar(&s.Config, "config", s.Config, "JSON or YAML settings file")
	return fs
}

// parseFlags parses args and layers the --config file under any flag that
// was given explicitly.
func parseFlags(fs *flag.FlagSet, s *settings, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if s.Config == "" {
		return nil
	}
	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		explicit[strings.ReplaceAll(f.Name, "-", "_")] = true
	})
	raw, err := readConfigFile(s.Config)
	if err != nil {
		return err
	}
	return applyConfig(s, raw, explicit)
}

func applyEnv(s *settings) error {
	raw := map[string]any{}
	for _, key := range configKeys() {
		if v, ok := os.LookupEnv(envPrefix + strings.ToUpper(key)); ok && v != "" {
			raw[key] = v
		}
	}
	return applyConfig(s, raw, nil)
}

func configKeys() []string {
	return []string{"store", "db_path", "dir", "geometry", "player", "opponent", "seed", "rate", "scale", "operator", "workers"}
}

func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return raw, nil
}

func applyConfig(s *settings, raw map[string]any, skip map[string]bool) error {
	for key, value := range raw {
		if skip[key] {
			continue
		}
		var err error
		switch key {
		case "store":
			s.Store, err = cast.ToStringE(value)
		case "db_path":
			s.DBPath, err = cast.ToStringE(value)
		case "dir":
			s.Dir, err = cast.ToStringE(value)
		case "geometry":
			s.Geometry, err = cast.ToStringE(value)
		case "operator":
			s.Operator, err = cast.ToStringE(value)
		case "player":
			s.Player, err = cast.ToIntE(value)
		case "opponent":
			s.Opponent, err = cast.ToIntE(value)
		case "workers":
			s.Workers, err = cast.ToIntE(value)
		case "seed":
			s.Seed, err = cast.ToInt64E(value)
		case "rate":
			s.Rate, err = cast.ToFloat64E(value)
		case "scale":
			s.Scale, err = cast.ToFloat64E(value)
		default:
			return fmt.Errorf("unknown setting: %s", key)
		}
		if err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return nil
}

func (s settings) clientOptions() tttevo.ClientOptions {
	opts := tttevo.ClientOptions{StoreKind: s.Store}
	switch s.Store {
	case "sqlite":
		opts.Path = s.DBPath
	case "file":
		opts.Path = s.Dir
	}
	return opts
}

func (s settings) engineOptions() (tttevo.Options, error) {
	geometry, err := eval.GeometryByName(s.Geometry)
	if err != nil {
		return tttevo.Options{}, err
	}
	symbols := eval.Symbols{Player: s.Player, Opponent: s.Opponent}
	if err := symbols.Validate(); err != nil {
		return tttevo.Options{}, err
	}
	return tttevo.Options{Geometry: geometry, Symbols: symbols, Seed: s.Seed}, nil
}
