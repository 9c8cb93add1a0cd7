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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/radu-munteanu/fsnotify"
	"github.com/spf13/cobra"
)

const manholeSocketPrefix = "manhole-"

func newListCommand() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List manhole sockets currently present in /tmp.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if wait > 0 {
				return waitForSocket(wait)
			}
			return printSockets()
		},
	}
	cmd.Flags().DurationVarP(&wait, "wait", "w", 0, "Instead of listing, block until a new manhole socket appears (or the duration elapses).")
	return cmd
}

func printSockets() error {
	entries, err := os.ReadDir("/tmp")
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"PID", "Socket"})
	table.SetBorder(false)

	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), manholeSocketPrefix) {
			continue
		}
		pid := strings.TrimPrefix(e.Name(), manholeSocketPrefix)
		table.Append([]string{pid, filepath.Join("/tmp", e.Name())})
	}
	table.Render()
	return nil
}

// waitForSocket blocks until a manhole-* socket is created in /tmp,
// handy right after sending an activate or oneshot signal to a host
// whose pid you don't know yet.
func waitForSocket(timeout time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add("/tmp"); err != nil {
		return err
	}

	deadline := time.After(timeout)
	for {
		select {
		case event := <-watcher.Events:
			if event.Op&fsnotify.Create == fsnotify.Create &&
				strings.HasPrefix(filepath.Base(event.Name), manholeSocketPrefix) {
				fmt.Println(event.Name)
				return nil
			}
		case err := <-watcher.Errors:
			return err
		case <-deadline:
			return fmt.Errorf("timed out waiting for a manhole socket")
		}
	}
}
