package mqtt_dashboard

import (
	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	log "github.com/sirupsen/logrus"

	"github.com/yeager/mqtt-dashboard/internal/pkg/config"
	"github.com/yeager/mqtt-dashboard/internal/pkg/constant"
	"github.com/yeager/mqtt-dashboard/internal/pkg/logging"
	"github.com/yeager/mqtt-dashboard/internal/pkg/screens"
	"github.com/yeager/mqtt-dashboard/pkg/dashboard"
	"github.com/yeager/mqtt-dashboard/pkg/mqtt"
)

// applyConnectionOverrides copies broker parameters the user passed on the
// command line into the layout. Only flags that were actually given count,
// so the merged defaults in conf never clobber a saved connection.
func applyConnectionOverrides(layout *dashboard.Layout, cli *config.CLI) {
	if cli.Broker != "" {
		layout.Connection.Host = cli.Broker
	}
	if cli.BrokerPort != 0 {
		layout.Connection.Port = cli.BrokerPort
	}
	if cli.BrokerUser != "" {
		layout.Connection.Username = cli.BrokerUser
	}
}

// Run wires the broker worker, the engine and the GUI together and blocks
// until the main window closes.
func Run(conf *config.Config, cli *config.CLI) {
	layout, err := dashboard.LoadLayout(conf.LayoutFile)
	if err != nil {
		logging.LogError(err, "falling back to an empty dashboard")
	}

	applyConnectionOverrides(&layout, cli)

	var engine *dashboard.Engine
	worker := mqtt.NewWorker(nil, func(topic string, payload []byte, retained bool) {
		engine.HandleMessage(topic, payload, retained)
	})
	engine = dashboard.NewEngine(worker, dashboard.WithLogCapacity(conf.LogCapacity))
	worker.AddConnectionCB(func(status mqtt.ConnectionStatus) {
		engine.OnConnectionChange(status == mqtt.ConnectionStatusConnected)
	})

	engine.Start()
	if err := engine.ApplyLayout(layout); err != nil {
		logging.LogError(err, "could not apply saved layout")
	}

	myApp := fyneapp.NewWithID(constant.APP_ID)
	window := myApp.NewWindow("MQTT Dashboard")
	window.CenterOnScreen()
	window.Resize(fyne.NewSize(constant.MainWindowW, constant.MainWindowH))

	screen := screens.NewDashboardScreen(myApp, window, engine, worker, conf)
	engine.SetNotifier(screen)

	window.SetContent(screen.GetContainer())
	window.SetOnClosed(func() {
		log.Info("shutting down")
		engine.Close()
		worker.Stop()
	})

	window.ShowAndRun()
}
