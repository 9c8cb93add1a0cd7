//
// Copyright © 2017 Solus Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package manhole

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func lookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// InstallEnvVar is the well-known environment variable name: when a
// packaging hook finds it non-empty at process bootstrap, it is
// expected to call InstallFromEnv before the host's own main runs.
// Building that hook (a -toolexec wrapper, a cgo constructor, an
// init-time shim) is the external collaborator's job; this package
// only owns the parsing and the resulting Install call.
const InstallEnvVar = "MANHOLE_INSTALL_ENV"

// ParseInstallEnv decodes the comma-separated "key=value" pairs
// InstallEnvVar carries into a Config seeded from DefaultConfig.
// Recognized keys: verbose, patch_fork, socket_path, activate_on,
// oneshot_on, sigmask (comma can't separate within a key's value, so
// sigmask takes a single "+"-joined list, e.g. "USR1+USR2"),
// start_timeout, bind_delay, reinstall_delay, daemon_connection,
// redirect_stderr, strict, handler (repl|exec), systemd_activation. All
// seconds fields are floating point.
func ParseInstallEnv(value string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(value) == "" {
		return cfg, nil
	}

	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return Config{}, fmt.Errorf("manhole: malformed INSTALL_ENV entry %q, expected key=value", pair)
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		if err := applyInstallEnvKey(&cfg, key, val); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func applyInstallEnvKey(cfg *Config, key, val string) error {
	switch key {
	case "verbose":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("manhole: invalid verbose value %q: %w", val, err)
		}
		cfg.Verbose = b
	case "patch_fork":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("manhole: invalid patch_fork value %q: %w", val, err)
		}
		cfg.PatchFork = b
	case "socket_path":
		cfg.SocketPath = val
	case "activate_on":
		sig, ok := ParseSignal(val)
		if !ok {
			return fmt.Errorf("manhole: invalid activate_on signal %q", val)
		}
		cfg.ActivateSignal = sig
	case "oneshot_on":
		sig, ok := ParseSignal(val)
		if !ok {
			return fmt.Errorf("manhole: invalid oneshot_on signal %q", val)
		}
		cfg.OneshotSignal = sig
	case "sigmask":
		cfg.Sigmask = nil
		for _, name := range strings.Split(val, "+") {
			sig, ok := ParseSignal(name)
			if !ok {
				return fmt.Errorf("manhole: invalid sigmask entry %q", name)
			}
			cfg.Sigmask = append(cfg.Sigmask, sig)
		}
	case "start_timeout":
		d, err := parseSecondsDuration(val)
		if err != nil {
			return fmt.Errorf("manhole: invalid start_timeout %q: %w", val, err)
		}
		cfg.StartTimeout = d
	case "bind_delay":
		d, err := parseSecondsDuration(val)
		if err != nil {
			return fmt.Errorf("manhole: invalid bind_delay %q: %w", val, err)
		}
		cfg.BindDelay = d
	case "reinstall_delay":
		d, err := parseSecondsDuration(val)
		if err != nil {
			return fmt.Errorf("manhole: invalid reinstall_delay %q: %w", val, err)
		}
		cfg.ReinstallDelay = d
	case "daemon_connection":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("manhole: invalid daemon_connection value %q: %w", val, err)
		}
		cfg.DaemonConnection = b
	case "redirect_stderr":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("manhole: invalid redirect_stderr value %q: %w", val, err)
		}
		cfg.RedirectStderr = b
	case "strict":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("manhole: invalid strict value %q: %w", val, err)
		}
		cfg.Strict = b
	case "systemd_activation":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("manhole: invalid systemd_activation value %q: %w", val, err)
		}
		cfg.UseSystemdActivation = b
	case "handler":
		switch strings.ToLower(val) {
		case "exec":
			cfg.ConnectionHandler = EXEC
		case "repl":
			cfg.ConnectionHandler = REPL
		default:
			return fmt.Errorf("manhole: invalid handler %q, want repl or exec", val)
		}
	default:
		return fmt.Errorf("manhole: unrecognized INSTALL_ENV key %q", key)
	}
	return nil
}

func parseSecondsDuration(val string) (time.Duration, error) {
	seconds, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// envLookup is swappable in tests; production callers always get os.LookupEnv.
var envLookup = lookupEnv

// InstallFromEnv bootstraps from the process environment: if
// InstallEnvVar is set, its value is parsed with ParseInstallEnv and
// Install is called with the result. It returns (nil, nil) when the
// variable is unset or empty, so a packaging hook can call this
// unconditionally at startup.
func InstallFromEnv() (*Installer, error) {
	value, set := envLookup(InstallEnvVar)
	if !set || strings.TrimSpace(value) == "" {
		return nil, nil
	}
	cfg, err := ParseInstallEnv(value)
	if err != nil {
		return nil, err
	}
	return Install(cfg)
}
