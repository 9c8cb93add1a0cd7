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

// Command manhole-demo is a minimal host process that embeds a manhole,
// for manually exercising the companion CLI against.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/solus-project/manhole"
)

var (
	socketPath     = ""
	activateOn     = ""
	oneshotOn      = ""
	useSystemd     = false
	connectionKind = "repl"
)

func main() {
	pflag.StringVarP(&socketPath, "socket", "s", "", "Fixed socket path (default /tmp/manhole-<pid>)")
	pflag.StringVar(&activateOn, "activate-on", "", "Signal name that starts the manhole thread")
	pflag.StringVar(&oneshotOn, "oneshot-on", "", "Signal name that serves one connection per delivery")
	pflag.BoolVar(&useSystemd, "systemd-activation", false, "Prefer a LISTEN_FDS-provided socket")
	pflag.StringVar(&connectionKind, "handler", "repl", `Connection handler: "repl" or "exec"`)
	pflag.Parse()

	form := &log.TextFormatter{DisableColors: true}
	form.FullTimestamp = true
	form.TimestampFormat = "15:04:05"
	log.SetFormatter(form)

	config := manhole.DefaultConfig()
	config.SocketPath = socketPath
	config.UseSystemdActivation = useSystemd
	config.Locals = map[string]interface{}{"pid": os.Getpid()}

	if connectionKind == "exec" {
		config.ConnectionHandler = manhole.EXEC
	}

	if activateOn != "" {
		sig, ok := manhole.ParseSignal(activateOn)
		if !ok {
			fmt.Fprintf(os.Stderr, "invalid --activate-on signal %q\n", activateOn)
			os.Exit(1)
		}
		config.ActivateSignal = sig
	}
	if oneshotOn != "" {
		sig, ok := manhole.ParseSignal(oneshotOn)
		if !ok {
			fmt.Fprintf(os.Stderr, "invalid --oneshot-on signal %q\n", oneshotOn)
			os.Exit(1)
		}
		config.OneshotSignal = sig
	}

	installer, err := manhole.InstallFromEnv()
	if err != nil {
		log.WithError(err).Fatal("failed to install manhole from " + manhole.InstallEnvVar)
	}
	if installer == nil {
		installer, err = manhole.Install(config)
		if err != nil {
			log.WithError(err).Fatal("failed to install manhole")
		}
	}
	log.Infof("installed %s, pid %d", installer, os.Getpid())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	installer.Release()
	log.Info("manhole released, exiting")
}
