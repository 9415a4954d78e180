package main

import (
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"

	"github.com/polyquery/polyquery"
)

// version and revision are set via -ldflags
var version = "dev"
var revision = "HEAD"

func parseOptions(args []string) *polyquery.Options {
	var opts struct {
		Config    string `short:"c" long:"config" description:"YAML file to specify: db_path, api_base_url, api_key, audit_log_path, oracle, file_paths, cache_ttl_seconds" value-name:"config_file"`
		WebSocket bool   `long:"websocket" description:"Serve over WebSocket instead of stdio"`
		Addr      string `long:"addr" description:"WebSocket listen address" value-name:"host:port" default:"localhost:8765"`
		Seed      bool   `long:"seed" description:"Create and seed the sample store before serving"`
		Prompt    bool   `long:"api-key-prompt" description:"Force REST API key prompt, overriding $MOCK_API_KEY"`
		Debug     bool   `long:"debug" description:"Dump the resolved configuration to stderr"`
		Help      bool   `long:"help" description:"Show this help"`
		Version   bool   `long:"version" description:"Show this version"`
	}

	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[OPTIONS]"
	args, err := parser.ParseArgs(args)
	if err != nil {
		log.Fatal(err)
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if opts.Version {
		fmt.Printf("%s (%s)\n", version, revision)
		os.Exit(0)
	}

	if len(args) > 0 {
		fmt.Printf("Unexpected arguments: %v\n\n", args)
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	apiKey := ""
	if opts.Prompt {
		fmt.Fprintf(os.Stderr, "Enter API key: ")
		key, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Fprintln(os.Stderr)
		apiKey = string(key)
	}

	return &polyquery.Options{
		ConfigFile: opts.Config,
		WebSocket:  opts.WebSocket,
		Addr:       opts.Addr,
		Seed:       opts.Seed,
		APIKey:     apiKey,
		Debug:      opts.Debug,
		Version:    version,
	}
}

func main() {
	options := parseOptions(os.Args[1:])
	if err := polyquery.Run(options); err != nil {
		log.Fatal(err)
	}
}
