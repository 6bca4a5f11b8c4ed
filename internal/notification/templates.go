package notification

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/radiation"
)

// MessageTimeLayout is the timestamp layout used in message bodies.
const MessageTimeLayout = "02.01.2006 15:04:05"

// Test notification content.
const (
	TestSubject = "Тестовое уведомление - Система контроля радиации"
	TestBody    = "Это тестовое уведомление от системы контроля уровня радиации.\n\nСистема работает нормально."
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// TestMessage returns the operator test notification.
func TestMessage() Message {
	return Message{Subject: TestSubject, Body: TestBody}
}

// AlertDetails carries everything an alert message shows.
type AlertDetails struct {
	Event    radiation.AlertEvent
	Location string
	Contacts []conf.EmergencyContact
}

type alertView struct {
	SensorID  string
	Location  string
	Actual    float64
	Threshold float64
	Time      string
	Contacts  []conf.EmergencyContact
}

var templateFuncs = template.FuncMap{
	"num": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
}

const detailsTemplate = `{{define "details"}}Детали:
- Датчик: {{.SensorID}}
- Местоположение: {{.Location}}
- Текущий уровень: {{printf "%.2f" .Actual}} мкЗв/ч
- Пороговое значение: {{num .Threshold}} мкЗв/ч
- Время: {{.Time}}
{{end}}`

const criticalTemplate = `ВНИМАНИЕ! КРИТИЧЕСКОЕ ПРЕВЫШЕНИЕ УРОВНЯ РАДИАЦИИ!

{{template "details" .}}
НЕОБХОДИМО НЕМЕДЛЕННО ПРИНЯТЬ МЕРЫ!
{{- if .Contacts}}

Экстренные контакты:
{{- range .Contacts}}
- {{.Service}}: {{.Contact}}
{{- end}}
{{- end}}
`

const warningTemplate = `ПРЕДУПРЕЖДЕНИЕ: Превышение уровня радиации

{{template "details" .}}
Рекомендуется проверить оборудование и принять меры.
`

var (
	criticalBody = template.Must(template.Must(
		template.New("critical").Funcs(templateFuncs).Parse(detailsTemplate)).Parse(criticalTemplate))
	warningBody = template.Must(template.Must(
		template.New("warning").Funcs(templateFuncs).Parse(detailsTemplate)).Parse(warningTemplate))
)

// RenderAlert renders the subject and body for an alert.
func RenderAlert(d AlertDetails) (Message, error) {
	location := d.Location
	if location == "" {
		location = "неизвестно"
	}
	view := alertView{
		SensorID:  d.Event.SensorID,
		Location:  location,
		Actual:    d.Event.ActualValue,
		Threshold: d.Event.ThresholdValue,
		Time:      d.Event.Timestamp.Format(MessageTimeLayout),
	}

	var (
		subject string
		tmpl    *template.Template
	)
	switch d.Event.Type {
	case radiation.AlertCritical:
		subject = fmt.Sprintf("🚨 КРИТИЧЕСКОЕ ПРЕВЫШЕНИЕ! Датчик %s", d.Event.SensorID)
		tmpl = criticalBody
		view.Contacts = d.Contacts
	case radiation.AlertWarning:
		subject = fmt.Sprintf("⚠️ ПРЕДУПРЕЖДЕНИЕ: Превышение уровня радиации - %s", d.Event.SensorID)
		tmpl = warningBody
	default:
		return Message{}, fmt.Errorf("unknown alert type %q", d.Event.Type)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return Message{}, fmt.Errorf("render %s alert: %w", d.Event.Type, err)
	}
	return Message{Subject: subject, Body: strings.TrimSpace(buf.String())}, nil
}
