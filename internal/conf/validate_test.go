package conf

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/radiation"
)

// defaultSettings returns the settings a fresh installation starts with.
func defaultSettings(t *testing.T) *Settings {
	t.Helper()
	v := viper.New()
	setDefaultConfig(v)
	s := &Settings{}
	require.NoError(t, v.Unmarshal(s))
	return s
}

func TestDefaultsAreValid(t *testing.T) {
	t.Parallel()

	s := defaultSettings(t)
	require.NoError(t, ValidateSettings(s))

	assert.InDelta(t, 5.0, float64(s.Monitor.PollingInterval), 1e-9)
	assert.InDelta(t, 1.0, s.Thresholds.Warning, 1e-9)
	assert.InDelta(t, 2.5, s.Thresholds.Danger, 1e-9)
	assert.Equal(t, 50, s.History.Capacity)
	assert.Equal(t, 1000, s.History.AlertCapacity)
	assert.Equal(t, "smtp.company.com", s.Notification.Email.SMTPServer)
	assert.Equal(t, 587, s.Notification.Email.SMTPPort)
	assert.Equal(t, "safety@company.com", s.Notification.Email.To)
	assert.Equal(t, "+79001234567", s.Notification.Phone)
	assert.Len(t, s.Notification.EmergencyContacts, 5)

	ids := make([]string, 0, len(s.Sensors))
	for _, sensor := range s.Sensors {
		ids = append(ids, sensor.ID)
	}
	assert.Equal(t, []string{"Д-124", "Д-128", "Д-135", "Д-142"}, ids)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Settings) {},
		},
		{
			name:    "zero polling interval",
			mutate:  func(s *Settings) { s.Monitor.PollingInterval = 0 },
			wantErr: "monitor.polling_interval",
		},
		{
			name:    "negative polling interval",
			mutate:  func(s *Settings) { s.Monitor.PollingInterval = -1 },
			wantErr: "monitor.polling_interval",
		},
		{
			name:    "warning equal to danger",
			mutate:  func(s *Settings) { s.Thresholds = radiation.Thresholds{Warning: 2, Danger: 2} },
			wantErr: "thresholds",
		},
		{
			name:    "warning above danger",
			mutate:  func(s *Settings) { s.Thresholds = radiation.Thresholds{Warning: 3, Danger: 2} },
			wantErr: "thresholds",
		},
		{
			name: "invalid sensor override",
			mutate: func(s *Settings) {
				s.Sensors[0].Thresholds = &radiation.Thresholds{Warning: 5, Danger: 1}
			},
			wantErr: "sensor Д-124: thresholds",
		},
		{
			name:    "duplicate sensor id",
			mutate:  func(s *Settings) { s.Sensors[1].ID = s.Sensors[0].ID },
			wantErr: "duplicate id",
		},
		{
			name:    "unknown sensor status",
			mutate:  func(s *Settings) { s.Sensors[0].Status = "broken" },
			wantErr: "status must be active or disabled",
		},
		{
			name:    "bad calibration date",
			mutate:  func(s *Settings) { s.Sensors[0].CalibrationDate = "15.01.2024" },
			wantErr: "calibration_date",
		},
		{
			name:    "zero history capacity",
			mutate:  func(s *Settings) { s.History.Capacity = 0 },
			wantErr: "history.capacity",
		},
		{
			name: "email enabled without server",
			mutate: func(s *Settings) {
				s.Notification.Email.Enabled = true
				s.Notification.Email.SMTPServer = ""
			},
			wantErr: "smtp_server",
		},
		{
			name: "webhook with ftp scheme",
			mutate: func(s *Settings) {
				s.Notification.Webhook.Enabled = true
				s.Notification.Webhook.URL = "ftp://example.com/hook"
			},
			wantErr: "notification.webhook.url",
		},
		{
			name: "disabled notifications skip checks",
			mutate: func(s *Settings) {
				s.Notification.Enabled = false
				s.Notification.MaxInFlight = 0
			},
		},
		{
			name:    "unknown database",
			mutate:  func(s *Settings) { s.Database.Type = "postgres" },
			wantErr: "database.type",
		},
		{
			name: "mqtt without topic",
			mutate: func(s *Settings) {
				s.MQTT.Enabled = true
				s.MQTT.Topic = ""
			},
			wantErr: "mqtt.topic",
		},
		{
			name:    "api listen without port",
			mutate:  func(s *Settings) { s.API.Listen = "localhost" },
			wantErr: "api.listen",
		},
		{
			name: "sftp target without host",
			mutate: func(s *Settings) {
				s.Backup.Targets = []BackupTarget{{Type: "sftp", Path: "/backups"}}
			},
			wantErr: "host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := defaultSettings(t)
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidationErrorIsConfigurationError(t *testing.T) {
	t.Parallel()

	s := defaultSettings(t)
	s.Monitor.PollingInterval = 0
	s.Thresholds = radiation.Thresholds{Warning: 3, Danger: 1}

	err := ValidateSettings(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfiguration)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2, "all problems are reported at once")
}
