package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSecret(t *testing.T) {
	dir := t.TempDir()
	secretFile := filepath.Join(dir, "smtp")
	require.NoError(t, os.WriteFile(secretFile, []byte("from-file\n"), 0o600))
	emptyFile := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(emptyFile, nil, 0o600))

	t.Setenv("RADMON_TEST_TOKEN", "s3cret")

	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{"literal", "plain", "plain", false},
		{"literal with dollar", "pa$$word", "pa$$word", false},
		{"env reference", "${RADMON_TEST_TOKEN}", "s3cret", false},
		{"embedded reference", "Bearer ${RADMON_TEST_TOKEN}", "Bearer s3cret", false},
		{"fallback", "${RADMON_TEST_UNSET:-guest}", "guest", false},
		{"missing env", "${RADMON_TEST_UNSET}", "", true},
		{"file", "file:" + secretFile, "from-file", false},
		{"empty file", "file:" + emptyFile, "", true},
		{"missing file", "file:" + filepath.Join(dir, "nope"), "", true},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSecret(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadResolvesSecrets(t *testing.T) {
	t.Setenv("RADMON_TEST_MQTT_PASSWORD", "broker-pass")

	path := writeConfig(t, t.TempDir(), testConfig+`
mqtt:
  password: ${RADMON_TEST_MQTT_PASSWORD}
`)
	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "broker-pass", m.Settings().MQTT.Password)
}

func TestLoadReportsUnresolvedSecret(t *testing.T) {
	path := writeConfig(t, t.TempDir(), testConfig+`
mqtt:
  password: ${RADMON_TEST_NOT_SET_ANYWHERE}
`)
	_, err := Load(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "mqtt.password")
}
