package service

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/gridline/internal/datasource"
	"github.com/yourusername/gridline/internal/models"
)

func testNormalizer() *DataNormalizer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewDataNormalizer(logger)
}

func TestParseLapTime(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"1:31.456", 91.456, true},
		{"0:59.999", 59.999, true},
		{"92.5", 92.5, true},
		{" 1:05.000 ", 65.0, true},
		{"", 0, false},
		{"1:75.000", 0, false},
		{"-10", 0, false},
		{"abc", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseLapTime(tc.raw)
		if tc.ok && err != nil {
			t.Fatalf("ParseLapTime(%q) failed: %v", tc.raw, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("ParseLapTime(%q) should fail", tc.raw)
			}
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("ParseLapTime(%q) = %f, want %f", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeSessionType(t *testing.T) {
	n := testNormalizer()

	cases := map[string]models.SessionType{
		"Qualifying":        models.SessionQualifying,
		"SPRINT SHOOTOUT":   models.SessionQualifying,
		"sprint qualifying": models.SessionQualifying,
		"Sprint":            models.SessionSprint,
		"Race":              models.SessionRace,
	}
	for raw, want := range cases {
		got, ok := n.NormalizeSessionType(raw)
		if !ok || got != want {
			t.Fatalf("NormalizeSessionType(%q) = %v/%v, want %v", raw, got, ok, want)
		}
	}

	if _, ok := n.NormalizeSessionType("Practice 1"); ok {
		t.Fatal("practice sessions should not map to a stored session type")
	}
}

func TestNormalizeRace(t *testing.T) {
	n := testNormalizer()

	race, err := n.NormalizeRace(&datasource.SessionData{
		SessionName: " Monaco Grand Prix ",
		CircuitName: "Monaco",
		CountryName: "Monaco",
		Year:        2025,
		DateStart:   time.Date(2025, 5, 25, 13, 0, 0, 0, time.UTC),
	}, 8)
	if err != nil {
		t.Fatalf("NormalizeRace failed: %v", err)
	}
	if race.EventName != "Monaco Grand Prix" || race.Round != 8 || race.Year != 2025 {
		t.Fatalf("unexpected race: %+v", race)
	}

	if _, err := n.NormalizeRace(&datasource.SessionData{Year: 1900}, 1); err == nil {
		t.Fatal("expected error for implausible year")
	}
	if _, err := n.NormalizeRace(nil, 1); err == nil {
		t.Fatal("expected error for nil session")
	}
}

func TestNormalizeResultUnclassified(t *testing.T) {
	n := testNormalizer()

	result, err := n.NormalizeResult(uuid.New(), models.SessionRace, &datasource.ResultData{
		DriverNumber: 44,
		Status:       "DNF",
	})
	if err != nil {
		t.Fatalf("unclassified entry should not error: %v", err)
	}
	if result != nil {
		t.Fatalf("unclassified entry should yield nil, got %+v", result)
	}

	pos := 0
	if _, err := n.NormalizeResult(uuid.New(), models.SessionRace, &datasource.ResultData{
		DriverNumber: 44, Position: &pos,
	}); err == nil {
		t.Fatal("expected error for position 0")
	}
}

func TestNormalizeLapSkipsUntimed(t *testing.T) {
	n := testNormalizer()
	raceID := uuid.New()

	if lap := n.NormalizeLap(raceID, models.SessionQualifying, &datasource.LapData{DriverNumber: 1, LapNumber: 1}); lap != nil {
		t.Fatalf("lap without duration should be skipped, got %+v", lap)
	}

	dur := 90.123
	if lap := n.NormalizeLap(raceID, models.SessionQualifying, &datasource.LapData{
		DriverNumber: 1, LapNumber: 2, LapDuration: &dur, IsPitOutLap: true,
	}); lap != nil {
		t.Fatalf("pit-out lap should be skipped, got %+v", lap)
	}

	lap := n.NormalizeLap(raceID, models.SessionQualifying, &datasource.LapData{
		DriverNumber: 1, LapNumber: 3, LapDuration: &dur,
	})
	if lap == nil || lap.LapTime != dur || lap.RaceID != raceID {
		t.Fatalf("timed lap not normalized: %+v", lap)
	}
}
