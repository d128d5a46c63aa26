package config

import (
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// What a node does with its pending transactions when consensus replaces its chain.
const (
	// Leave the pending pool untouched.
	PENDING_KEEP = "keep"
	// Throw every pending transaction away.
	PENDING_DISCARD = "discard"
	// Drop pending transactions that the adopted chain already contains.
	PENDING_PRUNE = "prune"
)

// Prefix of the environment variables that override the config file.
const ENV_PREFIX = "TOYCHAIN_"

// Longest wait between two attempts at the same peer.
const PEER_RETRY_MAX_INTERVAL = 2 * time.Second

// FetchBudget bounds how long fetching one peer's chain may take, every
// attempt and every wait between attempts included.
func FetchBudget(timeout time.Duration, retries uint64) time.Duration {
	return timeout*time.Duration(retries+1) + PEER_RETRY_MAX_INTERVAL*time.Duration(retries)
}

// This is the global app config for a node.
type AppConfig struct {
	// Interface the HTTP API listens on.
	HOST string
	// Port the HTTP API listens on.
	PORT int
	// Amount credited to this node for every block it mines.
	MINING_REWARD float64
	// Upper bound on proofs tried per block, 0 means search until found.
	MAX_PROOF_ITERATIONS int64
	// Timeout of one GET /chain call to a peer.
	PEER_TIMEOUT time.Duration
	// Extra attempts for a failed peer call, with exponential backoff.
	PEER_RETRIES uint64
	// One of PENDING_KEEP, PENDING_DISCARD, PENDING_PRUNE.
	PENDING_ON_REPLACE string
	// Abort and restart an in-flight mine when consensus replaces the chain.
	REMINE_ON_CHAIN_REPLACE bool
	// Where to remember registered peers, empty keeps them in memory only.
	PEER_STORE_PATH string
	// Peers registered at start up.
	PEERS []string
	// debug, info, warn or error.
	LOG_LEVEL string
	// Human friendly console logs instead of JSON.
	DEVELOPMENT bool
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		HOST:                    "127.0.0.1",
		PORT:                    5000,
		MINING_REWARD:           1,
		MAX_PROOF_ITERATIONS:    0,
		PEER_TIMEOUT:            5 * time.Second,
		PEER_RETRIES:            0,
		PENDING_ON_REPLACE:      PENDING_KEEP,
		REMINE_ON_CHAIN_REPLACE: true,
		PEER_STORE_PATH:         "",
		PEERS:                   []string{},
		LOG_LEVEL:               "info",
		DEVELOPMENT:             false,
	}
}

func (c AppConfig) Validate() error {
	switch c.PENDING_ON_REPLACE {
	case PENDING_KEEP, PENDING_DISCARD, PENDING_PRUNE:
	default:
		return fmt.Errorf("unknown pending_on_replace policy %q", c.PENDING_ON_REPLACE)
	}
	if c.PORT <= 0 || c.PORT > 65535 {
		return fmt.Errorf("invalid port %d", c.PORT)
	}
	if c.PEER_TIMEOUT <= 0 {
		return fmt.Errorf("peer_timeout must be positive, got %s", c.PEER_TIMEOUT)
	}
	if c.MINING_REWARD < 0 || math.IsNaN(c.MINING_REWARD) || math.IsInf(c.MINING_REWARD, 0) {
		return fmt.Errorf("mining_reward must be a finite non negative number, got %v", c.MINING_REWARD)
	}
	return nil
}

func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.HOST, c.PORT)
}

// ResolveTimeout is the deadline of one consensus round. Peers are fetched
// concurrently, so it is the budget of a single peer.
func (c AppConfig) ResolveTimeout() time.Duration {
	return FetchBudget(c.PEER_TIMEOUT, c.PEER_RETRIES)
}

// LoadAppConfig reads the YAML file at path (optional, empty path skips it),
// applies TOYCHAIN_* environment overrides and decodes the result over the
// defaults. Keys match field names case-insensitively, e.g. peer_timeout: 2s.
func LoadAppConfig(path string) (AppConfig, error) {
	raw := make(map[string]interface{})
	if path != "" {
		yamlFile, err := ioutil.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(yamlFile, &raw); err != nil {
			return AppConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	for k, v := range envOverrides() {
		for existing := range raw {
			if strings.EqualFold(existing, k) {
				delete(raw, existing)
			}
		}
		raw[k] = v
	}

	c := DefaultAppConfig()
	if err := decode(raw, &c); err != nil {
		return AppConfig{}, err
	}
	return c, c.Validate()
}

func decode(raw map[string]interface{}, c *AppConfig) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Every field of AppConfig can be set from TOYCHAIN_<FIELD>.
func envOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})
	t := reflect.TypeOf(AppConfig{})
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		if v, ok := os.LookupEnv(ENV_PREFIX + name); ok {
			overrides[strings.ToLower(name)] = v
		}
	}
	return overrides
}
