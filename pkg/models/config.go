/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
)

type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

const (
	DefaultConcurrency     = 100
	DefaultPingTimeout     = Duration(time.Second)
	DefaultFieldTimeout    = Duration(10 * time.Second)
	DefaultHostTimeout     = Duration(45 * time.Second)
	DefaultScanDeadline    = Duration(8 * time.Minute)
	DefaultSSHPort         = 22
	DefaultConnectTimeout  = Duration(5 * time.Second)
	DefaultMaxSessions     = 4
	DefaultMaxSnapshots    = 5
	DefaultSnapshotPrefix  = "fleet_snapshot_"
	DefaultSnapshotDir     = "/var/lib/fleetradar/snapshots"
	DefaultNATSBucket      = "fleet-snapshots"
	DefaultListenAddr      = ":8090"
	DefaultFleetRange      = "172.17.17.1-172.17.20.255"
	StoreTypeFile          = "file"
	StoreTypeNATS          = "nats"
	StoreTypeValkey        = "valkey"
	redactedSecretSentinel = "********"
)

var (
	errInvalidDuration     = errors.New("invalid duration")
	errNoAddressSpace      = errors.New("at least one of networks, ranges or addresses is required")
	errInvalidConcurrency  = errors.New("concurrency must be positive")
	errInvalidTimeout      = errors.New("timeouts must not be negative")
	errUnknownStoreType    = errors.New("unknown store type")
	errNATSURLRequired     = errors.New("store.nats_url is required for the nats store")
	errValkeyAddrRequired  = errors.New("store.valkey_address is required for the valkey store")
	errSnapshotDirRequired = errors.New("store.dir is required for the file store")
	errSSHUsernameRequired = errors.New("ssh.username is required when a password or key is set")
)

// FleetConfig is the configuration shared by the scanner, api and cli binaries.
type FleetConfig struct {
	Networks     []string         `json:"networks"`
	Ranges       []string         `json:"ranges"`
	Addresses    []string         `json:"addresses"`
	Membership   MembershipConfig `json:"membership"`
	Concurrency  int              `json:"concurrency"`
	PingTimeout  Duration         `json:"ping_timeout"`
	Privileged   bool             `json:"privileged"`
	FieldTimeout Duration         `json:"field_timeout"`
	HostTimeout  Duration         `json:"host_timeout"`
	ScanDeadline Duration         `json:"scan_deadline"`
	ScanInterval Duration         `json:"scan_interval"`
	SSH          SSHConfig        `json:"ssh"`
	Store        StoreConfig      `json:"store"`
	API          APIConfig        `json:"api"`
	Logging      *logger.Config   `json:"logging"`
}

// MembershipConfig holds the fleet-membership predicate.
type MembershipConfig struct {
	Pattern string `json:"pattern"`
}

// Accepts reports whether identity belongs to the fleet: a non-empty
// identity containing the pattern, case-insensitively.
func (m MembershipConfig) Accepts(identity string) bool {
	if identity == "" {
		return false
	}

	return strings.Contains(strings.ToUpper(identity), strings.ToUpper(m.Pattern))
}

type SSHConfig struct {
	Username             string   `json:"username"`
	Password             string   `json:"password"`
	PrivateKeyFile       string   `json:"private_key_file"`
	PrivateKeyPassphrase string   `json:"private_key_passphrase"`
	Port                 int      `json:"port"`
	KnownHostsFile       string   `json:"known_hosts_file"`
	ConnectTimeout       Duration `json:"connect_timeout"`
	MaxSessions          int      `json:"max_sessions"`
}

// Configured reports whether remote status probing is enabled.
func (c SSHConfig) Configured() bool {
	return c.Username != "" && (c.Password != "" || c.PrivateKeyFile != "")
}

// StoreConfig selects the snapshot backend. A negative MaxSnapshots
// disables retention.
type StoreConfig struct {
	Type          string     `json:"type"`
	Dir           string     `json:"dir"`
	Prefix        string     `json:"prefix"`
	MaxSnapshots  int        `json:"max_snapshots"`
	NATSURL       string     `json:"nats_url"`
	Bucket        string     `json:"bucket"`
	NATSCredsFile string     `json:"nats_creds_file"`
	TLS           *TLSConfig `json:"tls"`
	ValkeyAddress string     `json:"valkey_address"`
	ValkeyDB      int        `json:"valkey_db"`
}

// TLSConfig secures the connection to a remote snapshot backend.
type TLSConfig struct {
	CertFile   string `json:"cert_file"`
	KeyFile    string `json:"key_file"`
	CAFile     string `json:"ca_file"`
	ServerName string `json:"server_name"`
}

type APIConfig struct {
	ListenAddr     string   `json:"listen_addr"`
	APIKey         string   `json:"api_key"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// ApplyDefaults fills every unset field with its default value. A
// configuration with no address space scans the historical fleet range.
func (c *FleetConfig) ApplyDefaults() {
	if len(c.Networks) == 0 && len(c.Ranges) == 0 && len(c.Addresses) == 0 {
		c.Ranges = []string{DefaultFleetRange}
	}

	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}

	setDefaultDuration(&c.PingTimeout, DefaultPingTimeout)
	setDefaultDuration(&c.FieldTimeout, DefaultFieldTimeout)
	setDefaultDuration(&c.HostTimeout, DefaultHostTimeout)
	setDefaultDuration(&c.ScanDeadline, DefaultScanDeadline)
	setDefaultDuration(&c.SSH.ConnectTimeout, DefaultConnectTimeout)

	if c.SSH.Port == 0 {
		c.SSH.Port = DefaultSSHPort
	}

	if c.SSH.MaxSessions == 0 {
		c.SSH.MaxSessions = DefaultMaxSessions
	}

	if c.Store.Type == "" {
		c.Store.Type = StoreTypeFile
	}

	if c.Store.Type == StoreTypeFile && c.Store.Dir == "" {
		c.Store.Dir = DefaultSnapshotDir
	}

	if c.Store.Prefix == "" {
		c.Store.Prefix = DefaultSnapshotPrefix
	}

	if c.Store.MaxSnapshots == 0 {
		c.Store.MaxSnapshots = DefaultMaxSnapshots
	}

	if c.Store.Bucket == "" {
		c.Store.Bucket = DefaultNATSBucket
	}

	if c.API.ListenAddr == "" {
		c.API.ListenAddr = DefaultListenAddr
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}
}

func setDefaultDuration(d *Duration, def Duration) {
	if *d == 0 {
		*d = def
	}
}

// Validate implements config.Validator.
func (c *FleetConfig) Validate() error {
	if len(c.Networks) == 0 && len(c.Ranges) == 0 && len(c.Addresses) == 0 {
		return errNoAddressSpace
	}

	if c.Concurrency <= 0 {
		return errInvalidConcurrency
	}

	for _, d := range []Duration{c.PingTimeout, c.FieldTimeout, c.HostTimeout, c.ScanDeadline, c.ScanInterval, c.SSH.ConnectTimeout} {
		if d < 0 {
			return errInvalidTimeout
		}
	}

	if c.SSH.Username == "" && (c.SSH.Password != "" || c.SSH.PrivateKeyFile != "") {
		return errSSHUsernameRequired
	}

	switch c.Store.Type {
	case StoreTypeFile:
		if c.Store.Dir == "" {
			return errSnapshotDirRequired
		}
	case StoreTypeNATS:
		if c.Store.NATSURL == "" {
			return errNATSURLRequired
		}
	case StoreTypeValkey:
		if c.Store.ValkeyAddress == "" {
			return errValkeyAddrRequired
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownStoreType, c.Store.Type)
	}

	return nil
}

// Redacted returns a copy safe to log.
func (c FleetConfig) Redacted() FleetConfig {
	if c.SSH.Password != "" {
		c.SSH.Password = redactedSecretSentinel
	}

	if c.SSH.PrivateKeyPassphrase != "" {
		c.SSH.PrivateKeyPassphrase = redactedSecretSentinel
	}

	if c.API.APIKey != "" {
		c.API.APIKey = redactedSecretSentinel
	}

	return c
}
