package main

import (
	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/rotisserie/eris"

	app "github.com/yeager/mqtt-dashboard/internal/app/mqtt-dashboard"
	"github.com/yeager/mqtt-dashboard/internal/pkg/config"
	"github.com/yeager/mqtt-dashboard/internal/pkg/constant"
	"github.com/yeager/mqtt-dashboard/internal/pkg/logging"
)

var CLI config.CLI

func main() {

	kong.Parse(&CLI,
		kong.Name("mqtt-dashboard"),
		kong.Description("Real-time MQTT monitoring dashboard"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": constant.INFO + " - " + constant.VERSION,
		})

	v := viper.New()

	conf, err := config.Parse(v, CLI.ConfigFile, &CLI)
	if err != nil {
		log.Panicf("Failed to parse configuration file: %s", eris.ToString(err, true))
		return
	}

	if CLI.Verbose {
		conf.Logging.Level = log.TraceLevel
	}
	logging.Setup(&conf.Logging)

	app.Run(conf, &CLI)
}
