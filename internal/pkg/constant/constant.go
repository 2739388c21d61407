package constant

const APP_ID = "io.github.yeager.MqttDashboard"

const INFO = "mqtt-dashboard\r\nReal-time MQTT monitoring"
const VERSION = "0.1.0"

const MainWindowW = 1000
const MainWindowH = 700

const HOME_SCREEN_Broker_Connected = "connected"
const HOME_SCREEN_Broker_Disconnected = "disconnected"
const HOME_SCREEN_Broker_Connecting = "connecting..."

const BROKER_DIALOG_Broker = "Broker"
const BROKER_DIALOG_Port = "Port"
const BROKER_DIALOG_User = "User"
const BROKER_DIALOG_Password = "Password"
