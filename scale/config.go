package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gscale-count/catalog"
	"gscale-count/core"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultDisplayFile = "/tmp/gscale-count/display.json"
	defaultCatalogPath = "sku_weights.csv"
	defaultEnvFile     = ".env"
	defaultBaud        = 1200
	defaultBaudList    = "1200,2400,4800,9600"
)

type appConfig struct {
	device       string
	baud         int
	baudList     string
	bauds        []int
	probeTimeout time.Duration
	catalogPath  string
	catalogTable string
	policy       core.Policy
	displayFile  string
	logDir       string
	plain        bool
	resultHold   time.Duration
}

func defaultConfig() appConfig {
	return appConfig{
		baud:         defaultBaud,
		baudList:     defaultBaudList,
		probeTimeout: 1500 * time.Millisecond,
		catalogPath:  defaultCatalogPath,
		catalogTable: catalog.DefaultTable,
		policy:       core.DefaultPolicy(),
		displayFile:  defaultDisplayFile,
		resultHold:   2 * time.Second,
	}
}

// fileConfig mirrors the optional YAML config file. Durations are Go
// duration strings ("3s", "750ms").
type fileConfig struct {
	Serial struct {
		Device       string `yaml:"device"`
		Baud         int    `yaml:"baud"`
		BaudList     []int  `yaml:"baud_list"`
		ProbeTimeout string `yaml:"probe_timeout"`
	} `yaml:"serial"`
	Stability struct {
		ThresholdGrams *float64 `yaml:"threshold_grams"`
		MinSamples     int      `yaml:"min_samples"`
		ReadDuration   string   `yaml:"read_duration"`
		Timeout        string   `yaml:"timeout"`
		FloorGrams     *float64 `yaml:"floor_grams"`
		ReadTimeout    string   `yaml:"read_timeout"`
		MaxRestarts    *int     `yaml:"max_restarts"`
	} `yaml:"stability"`
	Catalog struct {
		Path  string `yaml:"path"`
		Table string `yaml:"table"`
	} `yaml:"catalog"`
	Display struct {
		StateFile  string `yaml:"state_file"`
		ResultHold string `yaml:"result_hold"`
	} `yaml:"display"`
	Log struct {
		Dir string `yaml:"dir"`
	} `yaml:"log"`
}

// parseConfig layers defaults, the YAML file, the environment (.env included)
// and explicitly set flags, in that order.
func parseConfig(args []string, getenv func(string) string, out io.Writer) (appConfig, error) {
	def := defaultConfig()
	fv := def
	var configFile string
	envFile := defaultEnvFile

	fs := flag.NewFlagSet("gscale-count", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&configFile, "config", "", "YAML config file")
	fs.StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file with GSCALE_* overrides")
	fs.StringVar(&fv.device, "device", "", "serial device path, example /dev/ttyUSB0 (empty: auto-detect)")
	fs.IntVar(&fv.baud, "baud", def.baud, "preferred baudrate")
	fs.StringVar(&fv.baudList, "baud-list", def.baudList, "comma-separated baudrates for auto-detect")
	fs.DurationVar(&fv.probeTimeout, "probe-timeout", def.probeTimeout, "probe duration per port/baud")
	fs.StringVar(&fv.catalogPath, "catalog", def.catalogPath, "SKU weight table (.csv, .db, .sqlite)")
	fs.StringVar(&fv.catalogTable, "catalog-table", def.catalogTable, "table name for SQLite catalogs")
	fs.Float64Var(&fv.policy.ThresholdGrams, "threshold", def.policy.ThresholdGrams, "max spread in grams for a stable reading")
	fs.IntVar(&fv.policy.MinSamples, "min-samples", def.policy.MinSamples, "readings required before stability is tested")
	fs.DurationVar(&fv.policy.ReadDuration, "read-duration", def.policy.ReadDuration, "stability window span")
	fs.DurationVar(&fv.policy.Timeout, "timeout", def.policy.Timeout, "budget before the window restarts")
	fs.Float64Var(&fv.policy.FloorGrams, "floor", def.policy.FloorGrams, "weight in grams below which no bin is assumed")
	fs.DurationVar(&fv.policy.ReadTimeout, "read-timeout", def.policy.ReadTimeout, "per-read wait slice")
	fs.IntVar(&fv.policy.MaxRestarts, "max-restarts", def.policy.MaxRestarts, "fail an attempt after N restarts (0: retry forever)")
	fs.StringVar(&fv.displayFile, "display-file", def.displayFile, "JSON file polled by the panel renderer (empty: off)")
	fs.StringVar(&fv.logDir, "log-dir", "", "log root directory (default <module>/logs)")
	fs.BoolVar(&fv.plain, "plain", false, "line-mode console instead of the TUI")
	fs.DurationVar(&fv.resultHold, "result-hold", def.resultHold, "pause after a result before the next prompt")
	if err := fs.Parse(args); err != nil {
		return appConfig{}, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := def
	if strings.TrimSpace(configFile) != "" {
		if err := applyConfigFile(&cfg, configFile); err != nil {
			return appConfig{}, err
		}
	}

	fileVals, err := godotenv.Read(envFile)
	if err != nil {
		if set["env-file"] || !errors.Is(err, os.ErrNotExist) {
			return appConfig{}, fmt.Errorf("read env file %s: %w", envFile, err)
		}
		fileVals = nil
	}
	lookup := func(key string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(fileVals[key])
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return appConfig{}, err
	}

	applyFlags(&cfg, fv, set)

	bauds, err := parseBaudList(cfg.baudList, cfg.baud)
	if err != nil {
		return appConfig{}, err
	}
	cfg.bauds = bauds

	if err := cfg.validate(); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

func applyConfigFile(cfg *appConfig, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if v := strings.TrimSpace(fc.Serial.Device); v != "" {
		cfg.device = v
	}
	if fc.Serial.Baud > 0 {
		cfg.baud = fc.Serial.Baud
	}
	if len(fc.Serial.BaudList) > 0 {
		parts := make([]string, 0, len(fc.Serial.BaudList))
		for _, b := range fc.Serial.BaudList {
			parts = append(parts, strconv.Itoa(b))
		}
		cfg.baudList = strings.Join(parts, ",")
	}
	if err := setDuration(&cfg.probeTimeout, "serial.probe_timeout", fc.Serial.ProbeTimeout); err != nil {
		return err
	}

	st := fc.Stability
	if st.ThresholdGrams != nil {
		cfg.policy.ThresholdGrams = *st.ThresholdGrams
	}
	if st.MinSamples != 0 {
		cfg.policy.MinSamples = st.MinSamples
	}
	if st.FloorGrams != nil {
		cfg.policy.FloorGrams = *st.FloorGrams
	}
	if st.MaxRestarts != nil {
		cfg.policy.MaxRestarts = *st.MaxRestarts
	}
	if err := setDuration(&cfg.policy.ReadDuration, "stability.read_duration", st.ReadDuration); err != nil {
		return err
	}
	if err := setDuration(&cfg.policy.Timeout, "stability.timeout", st.Timeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.policy.ReadTimeout, "stability.read_timeout", st.ReadTimeout); err != nil {
		return err
	}

	if v := strings.TrimSpace(fc.Catalog.Path); v != "" {
		cfg.catalogPath = v
	}
	if v := strings.TrimSpace(fc.Catalog.Table); v != "" {
		cfg.catalogTable = v
	}
	if v := strings.TrimSpace(fc.Display.StateFile); v != "" {
		cfg.displayFile = v
	}
	if err := setDuration(&cfg.resultHold, "display.result_hold", fc.Display.ResultHold); err != nil {
		return err
	}
	if v := strings.TrimSpace(fc.Log.Dir); v != "" {
		cfg.logDir = v
	}
	return nil
}

func applyEnv(cfg *appConfig, lookup func(string) string) error {
	if v := lookup("GSCALE_DEVICE"); v != "" {
		cfg.device = v
	}
	if v := lookup("GSCALE_BAUD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GSCALE_BAUD: invalid baudrate %q", v)
		}
		cfg.baud = n
	}
	if v := lookup("GSCALE_BAUD_LIST"); v != "" {
		cfg.baudList = v
	}
	if v := lookup("GSCALE_CATALOG"); v != "" {
		cfg.catalogPath = v
	}
	if v := lookup("GSCALE_CATALOG_TABLE"); v != "" {
		cfg.catalogTable = v
	}
	if v := lookup("GSCALE_DISPLAY_FILE"); v != "" {
		cfg.displayFile = v
	}
	if v := lookup("GSCALE_LOG_DIR"); v != "" {
		cfg.logDir = v
	}
	if v := lookup("GSCALE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("GSCALE_THRESHOLD: invalid number %q", v)
		}
		cfg.policy.ThresholdGrams = f
	}
	if v := lookup("GSCALE_FLOOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("GSCALE_FLOOR: invalid number %q", v)
		}
		cfg.policy.FloorGrams = f
	}
	if v := lookup("GSCALE_MIN_SAMPLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GSCALE_MIN_SAMPLES: invalid number %q", v)
		}
		cfg.policy.MinSamples = n
	}
	if v := lookup("GSCALE_MAX_RESTARTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GSCALE_MAX_RESTARTS: invalid number %q", v)
		}
		cfg.policy.MaxRestarts = n
	}
	if err := setDuration(&cfg.policy.ReadDuration, "GSCALE_READ_DURATION", lookup("GSCALE_READ_DURATION")); err != nil {
		return err
	}
	if err := setDuration(&cfg.policy.Timeout, "GSCALE_TIMEOUT", lookup("GSCALE_TIMEOUT")); err != nil {
		return err
	}
	if err := setDuration(&cfg.policy.ReadTimeout, "GSCALE_READ_TIMEOUT", lookup("GSCALE_READ_TIMEOUT")); err != nil {
		return err
	}
	if err := setDuration(&cfg.probeTimeout, "GSCALE_PROBE_TIMEOUT", lookup("GSCALE_PROBE_TIMEOUT")); err != nil {
		return err
	}
	if err := setDuration(&cfg.resultHold, "GSCALE_RESULT_HOLD", lookup("GSCALE_RESULT_HOLD")); err != nil {
		return err
	}
	if v := lookup("GSCALE_PLAIN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GSCALE_PLAIN: invalid bool %q", v)
		}
		cfg.plain = b
	}
	return nil
}

func applyFlags(cfg *appConfig, fv appConfig, set map[string]bool) {
	if set["device"] {
		cfg.device = strings.TrimSpace(fv.device)
	}
	if set["baud"] {
		cfg.baud = fv.baud
	}
	if set["baud-list"] {
		cfg.baudList = fv.baudList
	}
	if set["probe-timeout"] {
		cfg.probeTimeout = fv.probeTimeout
	}
	if set["catalog"] {
		cfg.catalogPath = fv.catalogPath
	}
	if set["catalog-table"] {
		cfg.catalogTable = fv.catalogTable
	}
	if set["threshold"] {
		cfg.policy.ThresholdGrams = fv.policy.ThresholdGrams
	}
	if set["min-samples"] {
		cfg.policy.MinSamples = fv.policy.MinSamples
	}
	if set["read-duration"] {
		cfg.policy.ReadDuration = fv.policy.ReadDuration
	}
	if set["timeout"] {
		cfg.policy.Timeout = fv.policy.Timeout
	}
	if set["floor"] {
		cfg.policy.FloorGrams = fv.policy.FloorGrams
	}
	if set["read-timeout"] {
		cfg.policy.ReadTimeout = fv.policy.ReadTimeout
	}
	if set["max-restarts"] {
		cfg.policy.MaxRestarts = fv.policy.MaxRestarts
	}
	if set["display-file"] {
		cfg.displayFile = fv.displayFile
	}
	if set["log-dir"] {
		cfg.logDir = fv.logDir
	}
	if set["plain"] {
		cfg.plain = fv.plain
	}
	if set["result-hold"] {
		cfg.resultHold = fv.resultHold
	}
}

func (c appConfig) validate() error {
	if err := c.policy.Validate(); err != nil {
		return fmt.Errorf("stability config: %w", err)
	}
	if strings.TrimSpace(c.catalogPath) == "" {
		return errors.New("catalog path is empty")
	}
	if c.probeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be > 0, got %s", c.probeTimeout)
	}
	if c.resultHold < 0 {
		return fmt.Errorf("result hold must be >= 0, got %s", c.resultHold)
	}
	return nil
}

func setDuration(dst *time.Duration, name, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", name, raw)
	}
	*dst = d
	return nil
}

func parseBaudList(raw string, preferred int) ([]int, error) {
	seen := map[int]bool{}
	out := make([]int, 0, 8)
	add := func(b int) {
		if b <= 0 || seen[b] {
			return
		}
		seen[b] = true
		out = append(out, b)
	}

	add(preferred)
	for _, part := range strings.Split(raw, ",") {
		v := strings.TrimSpace(part)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid baudrate %q", v)
		}
		add(n)
	}

	if len(out) == 0 {
		return nil, errors.New("empty baud list")
	}

	return out, nil
}
