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
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
)

func currentPID() int { return os.Getpid() }

// Evaluator is the host's REPL backend: the manhole owns transport and
// session lifecycle, never the expression language itself. Host
// processes embedding this package bring their own Evaluator, since a Go
// source tree has no eval() to fall back on, so the built-in default
// only supports a fixed set of diagnostic verbs.
type Evaluator interface {
	// Eval runs one line of input against namespace locals, writing any
	// output to out. Returning io.EOF ends the session.
	Eval(line string, locals map[string]interface{}, out io.Writer) error
}

// defaultEvaluator is the built-in Evaluator used when Configuration
// leaves Evaluator nil. It understands a handful of fixed commands
// rather than an arbitrary expression language, matching what a Go
// process can offer without an embedded interpreter.
type defaultEvaluator struct{}

func (defaultEvaluator) Eval(line string, locals map[string]interface{}, out io.Writer) error {
	switch line {
	case "":
		return nil
	case "quit", "exit":
		return io.EOF
	case "stacktraces":
		dumpStacktraces(out)
		return nil
	case "locals":
		for k, v := range locals {
			fmt.Fprintf(out, "%s = %v\n", k, v)
		}
		return nil
	default:
		fmt.Fprintf(out, "unknown command %q (try: stacktraces, locals, quit)\n", line)
		return nil
	}
}

// runREPL drives a line-oriented read/eval/print loop over rw until the
// Evaluator signals io.EOF or a read error occurs, used by the built-in
// REPL connection handler after stdio has been redirected onto the
// client.
func runREPL(rw io.ReadWriter, locals map[string]interface{}, eval Evaluator) error {
	if eval == nil {
		eval = defaultEvaluator{}
	}
	scanner := bufio.NewScanner(rw)
	for {
		fmt.Fprint(rw, ">>> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := eval.Eval(scanner.Text(), locals, rw); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// injectDefaultLocals seeds cfg.Locals with a handful of references
// every REPL namespace carries alongside whatever the host supplied: a
// callable wrapping dumpStacktraces and the host's pid, so a custom
// Evaluator can reach them without importing this package's other
// exported helpers directly. Existing keys the host already set are
// never overwritten.
func injectDefaultLocals(cfg *Config) {
	if cfg.Locals == nil {
		cfg.Locals = make(map[string]interface{}, 2)
	}
	if _, ok := cfg.Locals["dump_stacktraces"]; !ok {
		cfg.Locals["dump_stacktraces"] = func(out io.Writer) { dumpStacktraces(out) }
	}
	if _, ok := cfg.Locals["pid"]; !ok {
		cfg.Locals["pid"] = currentPID()
	}
}

// dumpStacktraces writes every live goroutine's stack to out, one
// block per goroutine, each preceded by a banner line identifying the
// host process and the goroutine the block belongs to.
func dumpStacktraces(out io.Writer) {
	pid := currentPID()
	for _, block := range goroutineBlocks() {
		fmt.Fprintf(out, "########## ProcessID=%d, GoroutineID=%s ##########\n", pid, goroutineID(block))
		out.Write([]byte(block))
		fmt.Fprintln(out)
	}
}

// goroutineBlocks splits the combined runtime.Stack(all=true) dump into
// its per-goroutine blocks, each starting at a "goroutine N [...]:" line.
func goroutineBlocks() []string {
	buf := make([]byte, 1<<16)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	var blocks []string
	for _, block := range strings.Split(string(buf), "\n\ngoroutine ") {
		block = strings.TrimRight(block, "\n")
		if block == "" {
			continue
		}
		if !strings.HasPrefix(block, "goroutine ") {
			block = "goroutine " + block
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// goroutineID extracts the numeric id from a block's leading
// "goroutine N [status]:" line. Returns "?" if the block is malformed.
func goroutineID(block string) string {
	const prefix = "goroutine "
	if !strings.HasPrefix(block, prefix) {
		return "?"
	}
	rest := block[len(prefix):]
	end := strings.IndexByte(rest, ' ')
	if end < 0 {
		return "?"
	}
	id := rest[:end]
	if _, err := strconv.Atoi(id); err != nil {
		return "?"
	}
	return id
}
