// discovery.go: Home Assistant MQTT auto-discovery for radiation sensors.
// See: https://www.home-assistant.io/integrations/mqtt/#mqtt-discovery
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/radiation"
)

// Sensor entity kinds published per radiation sensor.
const (
	EntityValue  = "value"
	EntityStatus = "status"
)

// deviceIDPrefix is the standard prefix for all radmon device identifiers
const deviceIDPrefix = "radmon"

// AllEntityKinds lists all entity kinds for iteration (e.g., during removal)
var AllEntityKinds = []string{EntityValue, EntityStatus}

// idSanitizer replaces invalid characters in IDs with underscores.
// Home Assistant requires IDs to contain only [a-zA-Z0-9_-].
var idSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// cyrillic maps sensor ids such as "Д-124" to ASCII before sanitizing.
var cyrillic = strings.NewReplacer(
	"А", "A", "Б", "B", "В", "V", "Г", "G", "Д", "D", "Е", "E", "Ж", "Zh", "З", "Z",
	"И", "I", "К", "K", "Л", "L", "М", "M", "Н", "N", "О", "O", "П", "P", "Р", "R",
	"С", "S", "Т", "T", "У", "U", "Ф", "F", "Х", "Kh", "Ц", "Ts", "Ч", "Ch", "Ш", "Sh",
	"Щ", "Shch", "Ъ", "", "Ы", "Y", "Ь", "", "Э", "E", "Ю", "Yu", "Я", "Ya", "Ё", "Yo", "Й", "Y",
	"а", "a", "б", "b", "в", "v", "г", "g", "д", "d", "е", "e", "ж", "zh", "з", "z",
	"и", "i", "к", "k", "л", "l", "м", "m", "н", "n", "о", "o", "п", "p", "р", "r",
	"с", "s", "т", "t", "у", "u", "ф", "f", "х", "kh", "ц", "ts", "ч", "ch", "ш", "sh",
	"щ", "shch", "ъ", "", "ы", "y", "ь", "", "э", "e", "ю", "yu", "я", "ya", "ё", "yo", "й", "y",
)

// SanitizeID ensures the ID contains only valid characters for MQTT topics and HA entity IDs.
func SanitizeID(id string) string {
	sanitized := idSanitizer.ReplaceAllString(cyrillic.Replace(id), "_")
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "unknown"
	}
	return sanitized
}

// DiscoveryPayload represents a Home Assistant MQTT discovery message.
type DiscoveryPayload struct {
	Name                string           `json:"name"`
	UniqueID            string           `json:"unique_id"`
	StateTopic          string           `json:"state_topic"`
	ValueTemplate       string           `json:"value_template,omitempty"`
	UnitOfMeasurement   string           `json:"unit_of_measurement,omitempty"`
	StateClass          string           `json:"state_class,omitempty"`
	Icon                string           `json:"icon,omitempty"`
	PayloadAvailable    string           `json:"payload_available,omitempty"`
	PayloadNotAvailable string           `json:"payload_not_available,omitempty"`
	AvailabilityTopic   string           `json:"availability_topic,omitempty"`
	Device              DiscoveryDevice  `json:"device"`
	Origin              *DiscoveryOrigin `json:"origin,omitempty"`
}

// DiscoveryDevice represents the device information in a discovery payload.
type DiscoveryDevice struct {
	Identifiers   []string `json:"identifiers"`
	Name          string   `json:"name"`
	Manufacturer  string   `json:"manufacturer"`
	Model         string   `json:"model"`
	SWVersion     string   `json:"sw_version,omitempty"`
	SuggestedArea string   `json:"suggested_area,omitempty"`
}

// DiscoveryOrigin provides information about the software creating the discovery message.
type DiscoveryOrigin struct {
	Name      string `json:"name"`
	SWVersion string `json:"sw_version,omitempty"`
}

// DiscoveryConfig holds configuration for generating discovery payloads.
type DiscoveryConfig struct {
	DiscoveryPrefix string // Home Assistant discovery topic prefix (default: homeassistant)
	BaseTopic       string // Base MQTT topic for state messages (e.g., radmon)
	NodeID          string // Node identifier (typically main.name from config)
	Version         string // Software version
}

// DiscoveryPublisher handles publishing Home Assistant discovery messages.
type DiscoveryPublisher struct {
	client Client
	config DiscoveryConfig
}

// NewDiscoveryPublisher creates a new discovery publisher.
func NewDiscoveryPublisher(client Client, config *DiscoveryConfig) *DiscoveryPublisher {
	cfg := *config
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	cfg.NodeID = SanitizeID(cfg.NodeID)
	return &DiscoveryPublisher{client: client, config: cfg}
}

// PublishDiscovery announces one device with a value and a status entity per sensor.
func (p *DiscoveryPublisher) PublishDiscovery(ctx context.Context, sensors []radiation.SensorDescriptor) error {
	var errs []string
	for _, s := range sensors {
		for _, kind := range AllEntityKinds {
			if err := p.publishPayload(ctx, p.getEntityTopic(s.ID, kind), p.entityPayload(s, kind)); err != nil {
				errs = append(errs, fmt.Sprintf("%s/%s: %v", s.ID, kind, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("discovery publish failed: %s", strings.Join(errs, "; "))
	}
	GetLogger().Info("published Home Assistant discovery",
		logger.Int("sensors", len(sensors)),
		logger.String("prefix", p.config.DiscoveryPrefix))
	return nil
}

// RemoveDiscovery clears the retained discovery messages of sensors.
func (p *DiscoveryPublisher) RemoveDiscovery(ctx context.Context, sensors []radiation.SensorDescriptor) error {
	var errs []string
	for _, s := range sensors {
		for _, kind := range AllEntityKinds {
			if err := p.client.PublishWithRetain(ctx, p.getEntityTopic(s.ID, kind), "", true); err != nil {
				errs = append(errs, fmt.Sprintf("%s/%s: %v", s.ID, kind, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("discovery removal failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (p *DiscoveryPublisher) entityPayload(s radiation.SensorDescriptor, kind string) *DiscoveryPayload {
	sensorID := SanitizeID(s.ID)
	name := s.Name
	if name == "" {
		name = s.ID
	}
	payload := &DiscoveryPayload{
		UniqueID:            fmt.Sprintf("%s_%s_%s_%s", deviceIDPrefix, p.config.NodeID, sensorID, kind),
		StateTopic:          ReadingTopic(p.config.BaseTopic, s.ID),
		AvailabilityTopic:   StatusTopic(p.config.BaseTopic),
		PayloadAvailable:    payloadOnline,
		PayloadNotAvailable: payloadOffline,
		Device: DiscoveryDevice{
			Identifiers:   []string{fmt.Sprintf("%s_%s_%s", deviceIDPrefix, p.config.NodeID, sensorID)},
			Name:          name,
			Manufacturer:  "radmon",
			Model:         "Radiation sensor",
			SWVersion:     p.config.Version,
			SuggestedArea: s.Location,
		},
		Origin: &DiscoveryOrigin{Name: "radmon", SWVersion: p.config.Version},
	}
	switch kind {
	case EntityValue:
		payload.Name = "Dose rate"
		payload.ValueTemplate = "{{ value_json.value }}"
		payload.UnitOfMeasurement = Unit
		payload.StateClass = "measurement"
		payload.Icon = "mdi:radioactive"
	case EntityStatus:
		payload.Name = "Status"
		payload.ValueTemplate = "{{ value_json.status }}"
		payload.Icon = "mdi:alert-octagon"
	}
	return payload
}

func (p *DiscoveryPublisher) publishPayload(ctx context.Context, topic string, payload *DiscoveryPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discovery payload: %w", err)
	}
	return p.client.PublishWithRetain(ctx, topic, string(data), true)
}

func (p *DiscoveryPublisher) getEntityTopic(sensorID, kind string) string {
	return fmt.Sprintf("%s/sensor/%s/%s_%s/config",
		p.config.DiscoveryPrefix, p.config.NodeID, SanitizeID(sensorID), kind)
}
