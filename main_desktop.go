//go:build desktop

package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	fs := pflag.NewFlagSet("kexbuild", pflag.ContinueOnError)
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

	err = wails.Run(&options.App{
		Title:  "kexbuild",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup: app.startup,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("wails")
	}
}
