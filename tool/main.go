// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package tool implements the dsfetch command.
package tool

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	golog "log"
	"net/http" // Global pprof handlers for all instantiations of the tool.
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime/pprof"
	"sort"

	"github.com/grailbio/base/status"
	"github.com/grailbio/dsfetch/config"
	"github.com/grailbio/dsfetch/fetch"
	"github.com/grailbio/dsfetch/log"
)

// Func is the type of a command function.
type Func func(*Cmd, context.Context, ...string)

// Cmd holds the configuration, flag definitions, and runtime objects
// required for tool invocations.
type Cmd struct {
	// Config must be specified.
	Config            config.Config
	DefaultConfigFile string
	Version           string
	Variant           string

	// Commands contains the additional set of invocable commands.
	Commands map[string]Func

	// MakeConfig is called to wrap the base configuration.
	// This allows a tool instance to customize on top of the
	// base configuration.
	MakeConfig func(config.Config) config.Config

	// ConfigFile stores the path of the active configuration file.
	// May be overriden by the -config flag.
	ConfigFile string

	// Intro is an additional introduction printed after the standard one.
	Intro string

	// The standard output and error as defined by this command;
	// these are wrapped through a status writer so that output is
	// properly interleaved.
	Stdout, Stderr io.Writer

	// Status object for the current cmd invocation. This is used to
	// continuously update the progress of the cmd execution.
	Status *status.Status

	configFlag     config.Flag
	httpFlag       string
	cpuProfileFlag string
	logFlag        string

	onexits []func()

	flags *flag.FlagSet

	Log *log.Logger
}

var commands = map[string]Func{
	"fetch":   (*Cmd).fetch,
	"batch":   (*Cmd).batch,
	"task":    (*Cmd).task,
	"check":   (*Cmd).check,
	"config":  (*Cmd).config,
	"version": (*Cmd).version,
}

var intro = `The dsfetch command retrieves files from DataLad datasets.

Given a dataset path and a file relative to it, dsfetch installs the
dataset if it is not present (from a source URL), retrieves the
file's annexed content, and prints the file's absolute path:

	dsfetch fetch -url https://example.com/ds.git /data/ds sub/file.txt

The command comprises a set of subcommands; the list of supported
commands can be obtained by running

	dsfetch -help

Each subcommand can in turn be invoked with -help, displaying its
usage and help text. Global flags must be supplied before the
command's name; command flags after it.

dsfetch is configured from a single YAML configuration file. The
configuration is documented by the config command:

	dsfetch config -help

The toplevel configuration keys may be overriden by flags. These
are: -logger, -backend, -lock, and -origin.`

var help = `Dsfetch retrieves files from DataLad datasets.

Usage of dsfetch:
	dsfetch [flags] <command> [args]`

func (c *Cmd) usage(flags *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, help)
	fmt.Fprintln(os.Stderr, "Dsfetch commands:")
	var cmds []string
	for name := range c.commands() {
		cmds = append(cmds, name)
	}
	sort.Strings(cmds)
	for _, name := range cmds {
		fmt.Fprintln(os.Stderr, "\t"+name)
	}
	fmt.Fprintln(os.Stderr, "Global flags:")
	flags.PrintDefaults()
	c.Exit(2)
}

// Main parses command line flags and then invokes the requested
// command. Main uses Cmd's config (and other initialization), which
// may be overriden by flag configs. It should be invoked only once,
// at the beginning of command line execution.
// The caller is expected to have parsed the flagset for us before
// calling Main.
func (c *Cmd) Main() {
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	flags := c.Flags()
	if flags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, intro)
		if c.Intro != "" {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, c.Intro)
		}
		c.Exit(2)
	}
	cmd := flags.Arg(0)
	fn := c.commands()[cmd]
	if fn == nil {
		flags.Usage()
	}
	level, err := log.ParseLevel(c.logFlag)
	if err != nil {
		c.Fatal(err)
	}
	var (
		logflags  int
		logprefix = "dsfetch: "
	)
	if level > log.InfoLevel {
		logflags = golog.LstdFlags
		logprefix = ""
	}
	c.Status = new(status.Status)
	http.Handle("/debug/status", status.Handler(c.Status))
	if level < log.DebugLevel {
		reporter := make(status.Reporter)
		c.Stdout = reporter.Wrap(os.Stdout)
		c.Stderr = reporter.Wrap(os.Stderr)
		go reporter.Go(os.Stderr, c.Status)
		c.onexit(reporter.Stop)
	}

	// Set the system wide logger with the same level and output
	// as the one that's threaded through Cmd.
	log.Std = log.New(golog.New(c.Stderr, logprefix, logflags), level)
	c.Log = log.Std

	if c.ConfigFile != "" {
		b, err := ioutil.ReadFile(c.ConfigFile)
		if err != nil && c.ConfigFile != c.DefaultConfigFile {
			c.Fatal(err)
		}
		if err := config.Unmarshal(b, c.Config.Keys()); err != nil {
			c.Fatal(err)
		}
	}
	// Define logs as configured by flags. A configured logger
	// provider takes precedence.
	c.configFlag.Config = &logConfig{c.Config, c.Log}
	c.Config, err = config.Make(&c.configFlag)
	if err != nil {
		c.Fatal(err)
	}
	// Run MakeConfig last, so that they can be properly composed with
	// underlying config overrides.
	if c.MakeConfig != nil {
		c.Config = c.MakeConfig(c.Config)
	}
	c.Config = config.Once(c.Config)

	if c.httpFlag != "" {
		go func() {
			c.Fatal(http.ListenAndServe(c.httpFlag, nil))
		}()
	}
	if c.cpuProfileFlag != "" {
		file, err := os.Create(c.cpuProfileFlag)
		if err != nil {
			c.Fatal(err)
		}
		pprof.StartCPUProfile(file)
		c.onexit(pprof.StopCPUProfile)
	}

	c.Log.Debug("dsfetch version ", c.versionString())

	// Create a context and cancel it if we receive an interrupt.
	// The second interrupt we receive results in a hard exit.
	ctx, cancel := context.WithCancel(context.Background())
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		cancel()
		c.Errorln("cleaning up...")
		<-sigc
		c.Exit(1)
	}()
	// Note that the flag package stops parsing flags after the first
	// non-flag argument (i.e., the first argument that does not begin
	// with "-"); thus flag.Args()[1:] contains all the flags and
	// arguments for the command in flags.Arg[0].
	fn(c, ctx, flags.Args()[1:]...)
	c.Exit(0)
}

// Fetcher returns a fetcher as defined by the command's
// configuration.
func (c *Cmd) Fetcher() (*fetch.Fetcher, error) {
	backend, err := c.Config.Backend()
	if err != nil {
		return nil, err
	}
	locker, err := c.Config.Locker()
	if err != nil {
		return nil, err
	}
	policy, err := c.Config.OriginPolicy()
	if err != nil {
		return nil, err
	}
	logger, err := c.Config.Logger()
	if err != nil {
		return nil, err
	}
	return &fetch.Fetcher{
		Backend: backend,
		Locker:  locker,
		Origin:  policy,
		Log:     logger,
	}, nil
}

// Fatal formats a message in the manner of fmt.Print, prints it to
// stderr, and then exits the tool.
func (c *Cmd) Fatal(v ...interface{}) {
	fmt.Fprintln(c.Stderr, v...)
	c.Exit(1)
}

// Fatalf formats a message in the manner of fmt.Printf, prints it to
// stderr, and then exits the tool.
func (c *Cmd) Fatalf(format string, v ...interface{}) {
	fmt.Fprintf(c.Stderr, format, v...)
	fmt.Fprintln(c.Stderr)
	c.Exit(1)
}

// Errorln formats a message in the manner of fmt.Println and prints it
// to stderr.
func (c Cmd) Errorln(v ...interface{}) {
	fmt.Fprintln(c.Stderr, v...)
}

// Errorf formats a message in the manner of fmt.Printf and prints it
// to stderr.
func (c *Cmd) Errorf(format string, v ...interface{}) {
	fmt.Fprintf(c.Stderr, format, v...)
}

// Println formats a message in the manner of fmt.Println and prints
// it to stdout.
func (c *Cmd) Println(v ...interface{}) {
	fmt.Fprintln(c.Stdout, v...)
}

// Printf formats a message in the manner of fmt.Printf and prints it
// to stdout.
func (c *Cmd) Printf(format string, v ...interface{}) {
	fmt.Fprintf(c.Stdout, format, v...)
}

// Exit causes the command to exit with the provided status code.
// Exit ensures that command teardown is properly handled.
func (c *Cmd) Exit(code int) {
	for _, fn := range c.onexits {
		fn()
	}
	os.Exit(code)
}

// Flags initializes and returns the FlagSet used by this Cmd instance.
// The user should parse this flagset before invoking (*Cmd).Main, e.g.:
//
//	cmd.Flags().Parse(os.Args[1:])
func (c *Cmd) Flags() *flag.FlagSet {
	if c.flags == nil {
		c.flags = flag.NewFlagSet("dsfetch", flag.ExitOnError)
		c.flags.Usage = func() { c.usage(c.flags) }
		c.flags.StringVar(&c.ConfigFile, "config", c.DefaultConfigFile, "path to configuration file; otherwise use default (builtin) config")
		c.flags.StringVar(&c.httpFlag, "http", "", "run a diagnostic HTTP server on this port")
		c.flags.StringVar(&c.cpuProfileFlag, "cpuprofile", "", "capture a CPU profile and deposit it to the provided path")
		c.flags.StringVar(&c.logFlag, "log", "info", "set the log level: off, error, info, debug")
		// Add flags to override configuration.
		c.configFlag.Init(c.flags, "; see dsfetch config -help")
	}
	return c.flags
}

func (c *Cmd) commands() map[string]Func {
	m := make(map[string]Func)
	for name, f := range commands {
		m[name] = f
	}
	for name, f := range c.Commands {
		m[name] = f
	}
	return m
}

func (c *Cmd) onexit(fn func()) {
	c.onexits = append(c.onexits, fn)
}

type logConfig struct {
	config.Config
	logger *log.Logger
}

func (c *logConfig) Logger() (*log.Logger, error) {
	return c.logger, nil
}
