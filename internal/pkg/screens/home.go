package screens

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/yeager/mqtt-dashboard/internal/pkg/config"
	"github.com/yeager/mqtt-dashboard/internal/pkg/constant"
	"github.com/yeager/mqtt-dashboard/pkg/dashboard"
	"github.com/yeager/mqtt-dashboard/pkg/mqtt"
)

const maxLogRows = 200
const maxLogPayloadLen = 120

const cardW = 260
const cardH = 220

// DashboardScreen is the main window content: connection controls,
// subscribe and publish bars, the widget card grid, the message log and a
// status bar. It implements dashboard.Notifier; engine callbacks arrive on
// the dispatcher goroutine and are handed to the fyne main loop with
// fyne.Do.
type DashboardScreen struct {
	app    fyne.App
	window fyne.Window
	engine *dashboard.Engine
	worker *mqtt.Worker
	conf   *config.Config

	container fyne.CanvasObject

	cards map[string]*WidgetCard
	grid  *fyne.Container

	logEntries []dashboard.LogEntry
	logList    *widget.List

	brokerDialog  *BrokerDialog
	waitBar       *WaitBar
	connectButton *widget.Button
	connectedText *widget.Label
	statusLabel   *widget.Label

	filterEntry *widget.Entry
	typeSelect  *widget.Select
	pubTopic    *widget.Entry
	pubPayload  *widget.Entry

	isConnected  bool
	droppedCount uint64
}

func NewDashboardScreen(app fyne.App, window fyne.Window, engine *dashboard.Engine,
	worker *mqtt.Worker, conf *config.Config) *DashboardScreen {

	s := &DashboardScreen{
		app:    app,
		window: window,
		engine: engine,
		worker: worker,
		conf:   conf,
		cards:  make(map[string]*WidgetCard),
	}

	s.brokerDialog = NewBrokerDialog(window, app.Preferences(), s.onBrokerConnect)
	s.waitBar = NewWaitBar(window)

	s.buildWidgets()
	s.buildLayout()

	for _, state := range engine.Snapshots() {
		s.ensureCard(state)
	}
	s.brokerDialog.Prefill(engine.Connection())

	go s.statusTick()

	return s
}

func (s *DashboardScreen) GetContainer() fyne.CanvasObject {
	return s.container
}

func (s *DashboardScreen) buildWidgets() {
	s.connectedText = widget.NewLabel(constant.HOME_SCREEN_Broker_Disconnected)
	s.connectButton = widget.NewButton("Connect", s.onConnectClicked)
	s.statusLabel = widget.NewLabel("")

	s.filterEntry = widget.NewEntry()
	s.filterEntry.SetPlaceHolder("topic/# or sensor/temperature")
	s.filterEntry.OnSubmitted = func(string) { s.onSubscribeClicked() }

	s.typeSelect = widget.NewSelect([]string{
		string(dashboard.WidgetTypeText),
		string(dashboard.WidgetTypeGauge),
		string(dashboard.WidgetTypeSparkline),
	}, nil)
	s.typeSelect.SetSelected(string(dashboard.WidgetTypeText))

	s.pubTopic = widget.NewEntry()
	s.pubTopic.SetPlaceHolder("topic")
	s.pubPayload = widget.NewEntry()
	s.pubPayload.SetPlaceHolder("message")
	s.pubPayload.OnSubmitted = func(string) { s.onPublishClicked() }

	s.grid = container.NewGridWrap(fyne.NewSize(cardW, cardH))

	s.logList = widget.NewList(
		func() int {
			return len(s.logEntries)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id < len(s.logEntries) {
				item.(*widget.Label).SetText(formatLogEntry(s.logEntries[id]))
			}
		},
	)
}

func (s *DashboardScreen) buildLayout() {
	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentSaveIcon(), s.onSaveClicked),
		widget.NewToolbarAction(theme.FolderOpenIcon(), s.onLoadClicked),
		widget.NewToolbarAction(theme.ContentClearIcon(), s.onClearLogClicked),
		widget.NewToolbarSpacer(),
		widget.NewToolbarAction(theme.InfoIcon(), s.onAboutClicked),
	)

	connBar := container.NewBorder(nil, nil, toolbar,
		container.NewHBox(s.connectedText, s.connectButton))

	subBar := container.NewBorder(nil, nil, widget.NewLabel("Subscribe:"),
		container.NewHBox(s.typeSelect, widget.NewButton("Subscribe", s.onSubscribeClicked)),
		s.filterEntry)

	pubBar := container.NewBorder(nil, nil, widget.NewLabel("Publish:"),
		widget.NewButton("Send", s.onPublishClicked),
		container.NewGridWithColumns(2, s.pubTopic, s.pubPayload))

	split := container.NewVSplit(container.NewScroll(s.grid), s.logList)
	split.SetOffset(0.75)

	s.container = container.NewBorder(
		container.NewVBox(connBar, subBar, pubBar),
		s.statusLabel,
		nil, nil,
		split)
}

// --- user actions (fyne main goroutine) ---

func (s *DashboardScreen) onConnectClicked() {
	if s.isConnected {
		s.worker.Stop()
		// a clean disconnect doesn't fire the paho lost handler
		s.engine.OnConnectionChange(false)
		return
	}
	s.brokerDialog.Show()
}

func (s *DashboardScreen) onBrokerConnect(conn dashboard.Connection, password string) {
	s.engine.SetConnection(conn)

	addr := fmt.Sprintf("tcp://%s:%d", conn.Host, conn.Port)
	opts := MQTT.NewClientOptions()
	opts.AddBroker(addr)
	if conn.Username != "" {
		opts.SetUsername(conn.Username)
	}
	if password != "" {
		opts.SetPassword(password)
	}

	log.Info("Connecting to : " + addr)
	s.worker.Stop()
	s.worker.SetOpts(opts)
	s.connectedText.SetText(constant.HOME_SCREEN_Broker_Connecting)
	s.waitBar.Show()
	s.worker.Start()
}

func (s *DashboardScreen) onSubscribeClicked() {
	filter := s.filterEntry.Text
	if filter == "" {
		return
	}
	typ, err := dashboard.ParseWidgetType(s.typeSelect.Selected)
	if err != nil {
		dialog.ShowError(err, s.window)
		return
	}

	cfg := dashboard.DisplayConfig{}
	if typ == dashboard.WidgetTypeSparkline {
		cfg.Points = s.conf.SparklinePoints
	}
	if _, err := s.engine.AddWidget(typ, filter, cfg); err != nil {
		dialog.ShowError(err, s.window)
		return
	}
	s.filterEntry.SetText("")
}

func (s *DashboardScreen) onPublishClicked() {
	topic := s.pubTopic.Text
	if topic == "" {
		return
	}
	err := s.engine.Publish(topic, []byte(s.pubPayload.Text), mqtt.DefaultQOS, false)
	if err != nil {
		dialog.ShowError(err, s.window)
	}
}

func (s *DashboardScreen) onSaveClicked() {
	layout := s.engine.CurrentLayout()
	if err := dashboard.SaveLayout(s.conf.LayoutFile, layout); err != nil {
		dialog.ShowError(err, s.window)
		return
	}
	log.Infof("layout saved to %s", s.conf.LayoutFile)
}

func (s *DashboardScreen) onLoadClicked() {
	layout, err := dashboard.LoadLayout(s.conf.LayoutFile)
	if err != nil {
		dialog.ShowError(err, s.window)
		return
	}
	if err := s.engine.ApplyLayout(layout); err != nil {
		dialog.ShowError(err, s.window)
		return
	}
	s.brokerDialog.Prefill(layout.Connection)
}

func (s *DashboardScreen) onClearLogClicked() {
	s.engine.ClearLog()
	s.logEntries = nil
	s.logList.Refresh()
}

func (s *DashboardScreen) onAboutClicked() {
	about := fmt.Sprintf("MQTT Dashboard %s\n\nReal-time MQTT monitoring.", constant.VERSION)
	dialog.ShowInformation("About", about, s.window)
}

// --- dashboard.Notifier (engine dispatcher goroutine) ---

func (s *DashboardScreen) WidgetChanged(w *dashboard.Widget) {
	state := w.Snapshot()
	fyne.Do(func() {
		s.ensureCard(state).Update(state)
	})
}

func (s *DashboardScreen) WidgetRemoved(id string) {
	fyne.Do(func() {
		card, ok := s.cards[id]
		if !ok {
			return
		}
		delete(s.cards, id)
		s.grid.Remove(card.GetContainer())
		s.grid.Refresh()
	})
}

func (s *DashboardScreen) LogAppended(e dashboard.LogEntry) {
	fyne.Do(func() {
		s.logEntries = append([]dashboard.LogEntry{e}, s.logEntries...)
		if len(s.logEntries) > maxLogRows {
			s.logEntries = s.logEntries[:maxLogRows]
		}
		s.logList.Refresh()
	})
}

func (s *DashboardScreen) ConnectionChanged(connected bool) {
	fyne.Do(func() {
		s.isConnected = connected
		s.waitBar.Hide()
		if connected {
			s.connectedText.SetText(constant.HOME_SCREEN_Broker_Connected)
			s.connectButton.SetText("Disconnect")
		} else {
			s.connectedText.SetText(constant.HOME_SCREEN_Broker_Disconnected)
			s.connectButton.SetText("Connect")
		}
	})
}

func (s *DashboardScreen) Dropped(count uint64) {
	fyne.Do(func() {
		s.droppedCount = count
	})
}

// --- helpers (fyne main goroutine) ---

func (s *DashboardScreen) ensureCard(state dashboard.State) *WidgetCard {
	if card, ok := s.cards[state.ID]; ok {
		return card
	}
	card := NewWidgetCard(state, func(id string) {
		s.engine.RemoveWidget(id)
	})
	s.cards[state.ID] = card
	s.grid.Add(card.GetContainer())
	s.grid.Refresh()
	return card
}

func (s *DashboardScreen) statusTick() {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for range tick.C {
		fyne.Do(func() {
			now := time.Now().Format(time.DateTime)
			status := fmt.Sprintf("  %d widgets | %s", len(s.cards), now)
			if s.droppedCount > 0 {
				status = fmt.Sprintf("  %d widgets | %d dropped | %s",
					len(s.cards), s.droppedCount, now)
			}
			s.statusLabel.SetText(status)
		})
	}
}

func formatLogEntry(e dashboard.LogEntry) string {
	payload := e.Payload
	if len(payload) > maxLogPayloadLen {
		payload = payload[:maxLogPayloadLen] + "..."
	}
	line := fmt.Sprintf("[%s] %s: %s", e.Time.Format("15:04:05"), e.Topic, payload)
	if e.Retained {
		line += " (retained)"
	}
	return line
}
