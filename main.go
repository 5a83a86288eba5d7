//go:build !desktop

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("kexbuild", pflag.ContinueOnError)
	script := fs.String("script", "-", "build script to run (- for stdin)")

	cfg, log, closeLog, err := setup(fs, os.Args[1:])
	if err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, "kexbuild:", err)
		os.Exit(2)
	}
	defer closeLog()

	app, err := newAppFromConfig(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	var in io.Reader = os.Stdin
	if *script != "-" {
		f, err := os.Open(*script)
		if err != nil {
			log.Fatal().Err(err).Msg("open script")
		}
		defer f.Close()
		in = f
	}

	if err := runScript(app, in, os.Stdout); err != nil {
		log.Error().Err(err).Msg("script failed")
		closeLog()
		os.Exit(1)
	}
}
