package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/androsik2006/radmon/internal/datastore"
)

// Verifier performs post-migration verification.
type Verifier struct {
	sourceDB *gorm.DB
	targetDB *gorm.DB
	out      io.Writer
}

// NewVerifier creates a new Verifier.
func NewVerifier(sourceDB, targetDB *gorm.DB) *Verifier {
	return &Verifier{
		sourceDB: sourceDB,
		targetDB: targetDB,
		out:      os.Stdout,
	}
}

// Verify performs all verification checks.
func (v *Verifier) Verify() error {
	if err := v.verifyCounts(); err != nil {
		return fmt.Errorf("count verification failed: %w", err)
	}
	if err := v.verifySamples(); err != nil {
		return fmt.Errorf("sample verification failed: %w", err)
	}
	return nil
}

// verifyCounts compares record counts between source and target.
func (v *Verifier) verifyCounts() error {
	fmt.Fprintln(v.out, "\nVerifying record counts...")

	tables := []struct {
		name  string
		model any
	}{
		{"sensors", &datastore.Sensor{}},
		{"measurements", &datastore.Measurement{}},
		{"alerts", &datastore.Alert{}},
	}

	allMatch := true
	fmt.Fprintf(v.out, "%-25s %12s %12s %8s\n", "Table", "Source", "Target", "Match")
	fmt.Fprintln(v.out, strings.Repeat("-", 60))

	for _, t := range tables {
		var sourceCount, targetCount int64

		if err := v.sourceDB.Model(t.model).Count(&sourceCount).Error; err != nil {
			return fmt.Errorf("failed to count source %s: %w", t.name, err)
		}
		if err := v.targetDB.Model(t.model).Count(&targetCount).Error; err != nil {
			return fmt.Errorf("failed to count target %s: %w", t.name, err)
		}

		match := "✓"
		if sourceCount != targetCount {
			match = "✗"
			allMatch = false
		}

		fmt.Fprintf(v.out, "%-25s %12d %12d %8s\n", t.name, sourceCount, targetCount, match)
	}

	if !allMatch {
		return fmt.Errorf("record counts do not match")
	}

	fmt.Fprintln(v.out, "\nAll counts match!")
	return nil
}

// verifySamples verifies random samples from the measurement and alert tables.
func (v *Verifier) verifySamples() error {
	fmt.Fprintln(v.out, "\nVerifying sample records...")

	if err := v.sampleMeasurements(5); err != nil {
		return fmt.Errorf("measurements sampling failed: %w", err)
	}
	if err := v.sampleAlerts(5); err != nil {
		return fmt.Errorf("alerts sampling failed: %w", err)
	}

	fmt.Fprintln(v.out, "Sample verification passed!")
	return nil
}

func (v *Verifier) sampleMeasurements(count int) error {
	var samples []datastore.Measurement
	if err := v.sourceDB.Order("RANDOM()").Limit(count).Find(&samples).Error; err != nil {
		return fmt.Errorf("failed to fetch source samples: %w", err)
	}
	if len(samples) == 0 {
		fmt.Fprintln(v.out, "  Measurements: no records to sample")
		return nil
	}

	for _, src := range samples {
		var target datastore.Measurement
		if err := v.targetDB.First(&target, src.ID).Error; err != nil {
			return fmt.Errorf("measurement ID %d not found in target: %w", src.ID, err)
		}
		if src.SensorID != target.SensorID {
			return fmt.Errorf("measurement ID %d: SensorID mismatch (%s vs %s)",
				src.ID, src.SensorID, target.SensorID)
		}
		if src.RadiationLevel != target.RadiationLevel {
			return fmt.Errorf("measurement ID %d: RadiationLevel mismatch (%f vs %f)",
				src.ID, src.RadiationLevel, target.RadiationLevel)
		}
		if src.Status != target.Status {
			return fmt.Errorf("measurement ID %d: Status mismatch (%s vs %s)",
				src.ID, src.Status, target.Status)
		}
	}

	fmt.Fprintf(v.out, "  Measurements: %d samples verified\n", len(samples))
	return nil
}

func (v *Verifier) sampleAlerts(count int) error {
	var samples []datastore.Alert
	if err := v.sourceDB.Order("RANDOM()").Limit(count).Find(&samples).Error; err != nil {
		return fmt.Errorf("failed to fetch source samples: %w", err)
	}
	if len(samples) == 0 {
		fmt.Fprintln(v.out, "  Alerts: no records to sample")
		return nil
	}

	for _, src := range samples {
		var target datastore.Alert
		if err := v.targetDB.Where("id = ?", src.ID).First(&target).Error; err != nil {
			return fmt.Errorf("alert %s not found in target: %w", src.ID, err)
		}
		if src.AlertType != target.AlertType || src.ActualValue != target.ActualValue {
			return fmt.Errorf("alert %s: content mismatch (%s %f vs %s %f)",
				src.ID, src.AlertType, src.ActualValue, target.AlertType, target.ActualValue)
		}
		if src.Notified != target.Notified {
			return fmt.Errorf("alert %s: Notified mismatch (%t vs %t)", src.ID, src.Notified, target.Notified)
		}
	}

	fmt.Fprintf(v.out, "  Alerts: %d samples verified\n", len(samples))
	return nil
}
