package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/radiation"
)

func testEvent(alertType radiation.AlertType, actual, threshold float64) radiation.AlertEvent {
	return radiation.AlertEvent{
		ID:             "e1",
		SensorID:       "Д-124",
		Type:           alertType,
		ThresholdValue: threshold,
		ActualValue:    actual,
		Timestamp:      time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC),
	}
}

func TestRenderCriticalAlert(t *testing.T) {
	t.Parallel()

	msg, err := RenderAlert(AlertDetails{
		Event:    testEvent(radiation.AlertCritical, 3.14159, 2.5),
		Location: "Реакторный зал",
		Contacts: []conf.EmergencyContact{
			{Service: "Главный инженер", Contact: "+79001112233"},
			{Service: "Радиационная безопасность", Contact: "safety@company.com"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "🚨 КРИТИЧЕСКОЕ ПРЕВЫШЕНИЕ! Датчик Д-124", msg.Subject)
	want := strings.Join([]string{
		"ВНИМАНИЕ! КРИТИЧЕСКОЕ ПРЕВЫШЕНИЕ УРОВНЯ РАДИАЦИИ!",
		"",
		"Детали:",
		"- Датчик: Д-124",
		"- Местоположение: Реакторный зал",
		"- Текущий уровень: 3.14 мкЗв/ч",
		"- Пороговое значение: 2.5 мкЗв/ч",
		"- Время: 09.03.2024 14:05:07",
		"",
		"НЕОБХОДИМО НЕМЕДЛЕННО ПРИНЯТЬ МЕРЫ!",
		"",
		"Экстренные контакты:",
		"- Главный инженер: +79001112233",
		"- Радиационная безопасность: safety@company.com",
	}, "\n")
	assert.Equal(t, want, msg.Body)
}

func TestRenderCriticalAlertWithoutContacts(t *testing.T) {
	t.Parallel()

	msg, err := RenderAlert(AlertDetails{Event: testEvent(radiation.AlertCritical, 2.5, 2.5)})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(msg.Body, "НЕОБХОДИМО НЕМЕДЛЕННО ПРИНЯТЬ МЕРЫ!"))
	assert.Contains(t, msg.Body, "- Местоположение: неизвестно")
}

func TestRenderWarningAlert(t *testing.T) {
	t.Parallel()

	msg, err := RenderAlert(AlertDetails{
		Event:    testEvent(radiation.AlertWarning, 1.0, 1.0),
		Location: "Склад",
		Contacts: []conf.EmergencyContact{{Service: "x", Contact: "y"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "⚠️ ПРЕДУПРЕЖДЕНИЕ: Превышение уровня радиации - Д-124", msg.Subject)
	assert.True(t, strings.HasPrefix(msg.Body, "ПРЕДУПРЕЖДЕНИЕ: Превышение уровня радиации\n\nДетали:"))
	assert.Contains(t, msg.Body, "- Текущий уровень: 1.00 мкЗв/ч")
	assert.Contains(t, msg.Body, "- Пороговое значение: 1 мкЗв/ч")
	assert.True(t, strings.HasSuffix(msg.Body, "Рекомендуется проверить оборудование и принять меры."))
	assert.NotContains(t, msg.Body, "Экстренные контакты", "contacts are listed only for critical alerts")
}

func TestRenderUnknownAlertType(t *testing.T) {
	t.Parallel()

	_, err := RenderAlert(AlertDetails{Event: testEvent("INFO", 1, 1)})
	require.Error(t, err)
}

func TestTestMessage(t *testing.T) {
	t.Parallel()

	msg := TestMessage()
	assert.Equal(t, "Тестовое уведомление - Система контроля радиации", msg.Subject)
	assert.Contains(t, msg.Body, "Система работает нормально.")
}
