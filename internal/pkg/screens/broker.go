package screens

import (
	"errors"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/yeager/mqtt-dashboard/internal/pkg/constant"
	"github.com/yeager/mqtt-dashboard/pkg/dashboard"
)

const mqttBroker = "mqttBroker"
const mqttBrokerPassword = "mqttBrokerPassword"
const mqttBrokerUser = "mqttBrokerUser"
const mqttBrokerPort = "mqttBrokerPort"

// OnBrokerConnect is called when the user confirms the settings form. The
// password travels separately so it never ends up in a saved layout.
type OnBrokerConnect func(conn dashboard.Connection, password string)

// BrokerDialog is the broker settings form. Last used values are kept in
// the fyne preferences store.
type BrokerDialog struct {
	dialog    dialog.Dialog
	window    fyne.Window
	storage   fyne.Preferences
	onConnect OnBrokerConnect

	broker   *widget.Entry
	port     *widget.Entry
	user     *widget.Entry
	password *widget.Entry
}

func NewBrokerDialog(window fyne.Window, storage fyne.Preferences, onConnect OnBrokerConnect) *BrokerDialog {
	s := BrokerDialog{window: window, storage: storage, onConnect: onConnect}
	s.broker = widget.NewEntry()
	s.port = widget.NewEntry()
	s.user = widget.NewEntry()
	s.password = widget.NewPasswordEntry()
	return &s
}

// Prefill seeds the form from a loaded layout, overriding any stored
// preference.
func (s *BrokerDialog) Prefill(conn dashboard.Connection) {
	if conn.Host != "" {
		s.broker.SetText(conn.Host)
	}
	if conn.Port != 0 {
		s.port.SetText(strconv.Itoa(conn.Port))
	}
	if conn.Username != "" {
		s.user.SetText(conn.Username)
	}
}

func (s *BrokerDialog) Show() {
	s.createForm()
	s.dialog.Resize(fyne.NewSize(s.window.Canvas().Size().Width/2, s.window.Canvas().Size().Height/2))
	s.dialog.Show()
}

func (s *BrokerDialog) createForm() {
	s.broker.SetPlaceHolder("broker host")
	s.broker.Validator = func(br string) error {
		if br == "" {
			return errors.New("broker host required")
		}
		return nil
	}
	if s.broker.Text == "" {
		if text := s.storage.String(mqttBroker); text != "" {
			s.broker.SetText(text)
		}
	}

	s.port.SetPlaceHolder("1883")
	if s.port.Text == "" {
		if text := s.storage.String(mqttBrokerPort); text != "" {
			s.port.SetText(text)
		}
	}

	s.user.SetPlaceHolder("user")
	if s.user.Text == "" {
		if text := s.storage.String(mqttBrokerUser); text != "" {
			s.user.SetText(text)
		}
	}

	if s.password.Text == "" {
		if text := s.storage.String(mqttBrokerPassword); text != "" {
			s.password.SetText(text)
		}
	}

	s.dialog = dialog.NewForm("Mqtt broker settings", "Connect", "Cancel",
		[]*widget.FormItem{
			{Text: constant.BROKER_DIALOG_Broker, Widget: s.broker, HintText: "MQTT broker to connect to"},
			{Text: constant.BROKER_DIALOG_Port, Widget: s.port, HintText: "MQTT broker port"},
			{Text: constant.BROKER_DIALOG_User, Widget: s.user, HintText: "User to use for connecting (optional)"},
			{Text: constant.BROKER_DIALOG_Password, Widget: s.password, HintText: "User password to use for connecting (optional)"},
		},
		func(confirm bool) {
			if !confirm {
				return
			}

			port := 1883
			if p, err := strconv.Atoi(s.port.Text); err == nil && p > 0 && p <= 65535 {
				port = p
			}

			s.storage.SetString(mqttBroker, s.broker.Text)
			s.storage.SetString(mqttBrokerPort, s.port.Text)
			s.storage.SetString(mqttBrokerUser, s.user.Text)
			s.storage.SetString(mqttBrokerPassword, s.password.Text)

			if s.onConnect != nil {
				conn := dashboard.Connection{
					Host:     s.broker.Text,
					Port:     port,
					Username: s.user.Text,
				}
				s.onConnect(conn, s.password.Text)
			}
		}, s.window)
}
