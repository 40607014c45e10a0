// Package config loads matcher settings. MATCHER_* environment variables
// override the YAML file, which overrides the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_matching/internal/fraction"
)

// EnvPrefix prefixes every environment override, e.g. MATCHER_LOG_LEVEL.
const EnvPrefix = "MATCHER"

// Sequencer names accepted by matching.sequencer.
const (
	SequencerGreedy   = "greedy"
	SequencerExplicit = "explicit"
)

// Config holds the resolved settings.
type Config struct {
	LogLevel string
	Matching Matching
	Ledger   Ledger
}

type Matching struct {
	MaximalFill       bool
	RoundingTolerance fraction.Tolerance
	Sequencer         string
	// ProtocolFee is charged per fill to the taker; zero disables it.
	ProtocolFee *uint256.Int
}

type Ledger struct {
	ClockSkew time.Duration
}

// Manager reads configuration through its own viper instance.
type Manager struct {
	configPath string
	logger     *zap.Logger
	viper      *viper.Viper

	mutex  sync.RWMutex
	config Config
}

// NewManager returns a manager for configPath. An empty path searches
// ./matcher.yaml, ./configs and /etc/pincex.
func NewManager(configPath string, logger *zap.Logger) *Manager {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Manager{
		configPath: configPath,
		logger:     logger.Named("matcher-config"),
		viper:      v,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("matching.maximal_fill", false)
	v.SetDefault("matching.rounding_tolerance", uint64(fraction.DefaultTolerance))
	v.SetDefault("matching.sequencer", SequencerGreedy)
	v.SetDefault("matching.protocol_fee", "0")
	v.SetDefault("ledger.clock_skew", "0s")
}

// LoadConfig reads the configuration file, falling back to defaults and
// environment when it does not exist.
func (m *Manager) LoadConfig() (Config, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.configPath != "" {
		if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
			m.logger.Warn("Configuration file not found, using defaults", zap.String("path", m.configPath))
			return m.resolve()
		}
		m.viper.SetConfigFile(m.configPath)
	} else {
		m.viper.SetConfigName("matcher")
		m.viper.SetConfigType("yaml")
		m.viper.AddConfigPath(".")
		m.viper.AddConfigPath("./configs")
		m.viper.AddConfigPath("/etc/pincex")
	}

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read configuration file: %w", err)
		}
		m.logger.Warn("Configuration file not found, using defaults")
	} else {
		m.logger.Info("Matcher configuration loaded", zap.String("file", m.viper.ConfigFileUsed()))
	}
	return m.resolve()
}

// Config returns the last loaded configuration.
func (m *Manager) Config() Config {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.config
}

func (m *Manager) resolve() (Config, error) {
	v := m.viper

	tol := v.GetUint64("matching.rounding_tolerance")
	if tol == 0 {
		return Config{}, fmt.Errorf("matching.rounding_tolerance must be positive")
	}

	seq := strings.ToLower(v.GetString("matching.sequencer"))
	if seq != SequencerGreedy && seq != SequencerExplicit {
		return Config{}, fmt.Errorf("matching.sequencer %q: want %s or %s", seq, SequencerGreedy, SequencerExplicit)
	}

	fee, err := uint256.FromDecimal(v.GetString("matching.protocol_fee"))
	if err != nil {
		return Config{}, fmt.Errorf("matching.protocol_fee: %w", err)
	}

	skew := v.GetDuration("ledger.clock_skew")
	if skew < 0 {
		return Config{}, fmt.Errorf("ledger.clock_skew must not be negative")
	}

	m.config = Config{
		LogLevel: v.GetString("log_level"),
		Matching: Matching{
			MaximalFill:       v.GetBool("matching.maximal_fill"),
			RoundingTolerance: fraction.Tolerance(tol),
			Sequencer:         seq,
			ProtocolFee:       fee,
		},
		Ledger: Ledger{ClockSkew: skew},
	}
	return m.config, nil
}
