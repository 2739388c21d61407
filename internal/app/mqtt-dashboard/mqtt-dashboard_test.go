package mqtt_dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeager/mqtt-dashboard/internal/pkg/config"
	"github.com/yeager/mqtt-dashboard/pkg/dashboard"
)

func TestApplyConnectionOverridesKeepsSavedConnection(t *testing.T) {
	layout := dashboard.Layout{
		Connection: dashboard.Connection{
			Host:     "broker.example.com",
			Port:     8883,
			Username: "alice",
		},
	}

	applyConnectionOverrides(&layout, &config.CLI{})

	assert.Equal(t, "broker.example.com", layout.Connection.Host)
	assert.Equal(t, 8883, layout.Connection.Port)
	assert.Equal(t, "alice", layout.Connection.Username)
}

func TestApplyConnectionOverridesCliWins(t *testing.T) {
	layout := dashboard.Layout{
		Connection: dashboard.Connection{
			Host:     "broker.example.com",
			Port:     8883,
			Username: "alice",
		},
	}

	cli := config.CLI{
		Broker:     "other.example.com",
		BrokerPort: 1884,
		BrokerUser: "bob",
	}
	applyConnectionOverrides(&layout, &cli)

	assert.Equal(t, "other.example.com", layout.Connection.Host)
	assert.Equal(t, 1884, layout.Connection.Port)
	assert.Equal(t, "bob", layout.Connection.Username)
}
