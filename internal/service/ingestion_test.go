package service

import (
	"testing"
	"time"

	"github.com/yourusername/gridline/internal/datasource"
)

func TestStintForLap(t *testing.T) {
	stints := []datasource.StintData{
		{DriverNumber: 1, StintNumber: 1, Compound: "SOFT", LapStart: 1, LapEnd: 8, TyreAgeStart: 0},
		{DriverNumber: 1, StintNumber: 2, Compound: "MEDIUM", LapStart: 9, LapEnd: 20, TyreAgeStart: 2},
		{DriverNumber: 2, StintNumber: 1, Compound: "HARD", LapStart: 1, LapEnd: 20, TyreAgeStart: 0},
	}

	compound, age, ok := stintForLap(stints, 1, 12)
	if !ok || compound != "MEDIUM" || age != 5 {
		t.Fatalf("expected MEDIUM age 5, got %s age %d ok=%v", compound, age, ok)
	}

	compound, age, ok = stintForLap(stints, 1, 1)
	if !ok || compound != "SOFT" || age != 0 {
		t.Fatalf("expected SOFT age 0, got %s age %d ok=%v", compound, age, ok)
	}

	if _, _, ok := stintForLap(stints, 3, 5); ok {
		t.Fatal("unknown driver should not resolve a stint")
	}
	if _, _, ok := stintForLap(stints, 1, 25); ok {
		t.Fatal("lap outside every stint should not resolve")
	}
}

func TestBuildTraceIntegratesDistance(t *testing.T) {
	start := time.Date(2025, 5, 24, 14, 0, 0, 0, time.UTC)
	var samples []datasource.TelemetrySample
	for i := 0; i < 10; i++ {
		samples = append(samples, datasource.TelemetrySample{
			Date:     start.Add(time.Duration(i) * time.Second),
			SpeedKPH: 180.0,
			Throttle: 100,
		})
	}

	trace := buildTrace(samples)
	if trace == nil {
		t.Fatal("expected a trace")
	}
	if len(trace.Speed) != 10 || len(trace.Distance) != 10 {
		t.Fatalf("expected 10 samples per channel, got %d/%d", len(trace.Speed), len(trace.Distance))
	}

	// 180 km/h is 50 m/s; nine seconds of travel is 450 m.
	last := trace.Distance[len(trace.Distance)-1]
	if last < 449 || last > 451 {
		t.Fatalf("expected ~450m of distance, got %f", last)
	}
}

func TestBuildTraceEmpty(t *testing.T) {
	if trace := buildTrace(nil); trace != nil {
		t.Fatalf("expected nil trace for no samples, got %+v", trace)
	}
}

func TestBuildTraceDownsamples(t *testing.T) {
	start := time.Now()
	var samples []datasource.TelemetrySample
	for i := 0; i < 3*maxTraceSamples; i++ {
		samples = append(samples, datasource.TelemetrySample{
			Date:     start.Add(time.Duration(i) * 100 * time.Millisecond),
			SpeedKPH: 200,
		})
	}
	trace := buildTrace(samples)
	if trace == nil {
		t.Fatal("expected a trace")
	}
	if len(trace.Speed) > maxTraceSamples+1 {
		t.Fatalf("trace not downsampled: %d samples", len(trace.Speed))
	}
}

func TestGroupByMeetingOrdersByDate(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sessions := []datasource.SessionData{
		{SessionKey: 3, MeetingKey: 2, SessionName: "Race", DateStart: base.AddDate(0, 0, 14)},
		{SessionKey: 1, MeetingKey: 1, SessionName: "Qualifying", DateStart: base},
		{SessionKey: 4, MeetingKey: 2, SessionName: "Qualifying", DateStart: base.AddDate(0, 0, 13)},
		{SessionKey: 2, MeetingKey: 1, SessionName: "Race", DateStart: base.AddDate(0, 0, 1)},
	}

	meetings := groupByMeeting(sessions)
	if len(meetings) != 2 {
		t.Fatalf("expected 2 meetings, got %d", len(meetings))
	}
	if meetings[0][0].MeetingKey != 1 || meetings[1][0].MeetingKey != 2 {
		t.Fatalf("meetings not in chronological order: %v, %v", meetings[0][0].MeetingKey, meetings[1][0].MeetingKey)
	}
	// Sessions within a meeting are date-ordered too.
	if meetings[1][0].SessionName != "Qualifying" {
		t.Fatalf("sessions inside meeting not ordered: %+v", meetings[1])
	}
}
