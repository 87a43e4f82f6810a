package report_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/coachreports/internal/report"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		viewer   report.Viewer
		presence report.Presence
		want     report.Decision
	}{
		{report.ViewerSelfClient, report.PresenceAbsent, report.DecisionEmpty},
		{report.ViewerSelfClient, report.PresenceEmpty, report.DecisionLive},
		{report.ViewerSelfClient, report.PresenceNonEmpty, report.DecisionLive},
		{report.ViewerTrainerNoSelection, report.PresenceAbsent, report.DecisionPlaceholder},
		{report.ViewerTrainerNoSelection, report.PresenceEmpty, report.DecisionPlaceholder},
		{report.ViewerTrainerNoSelection, report.PresenceNonEmpty, report.DecisionPlaceholder},
		{report.ViewerTrainerWithSelection, report.PresenceAbsent, report.DecisionEmpty},
		{report.ViewerTrainerWithSelection, report.PresenceEmpty, report.DecisionEmpty},
		{report.ViewerTrainerWithSelection, report.PresenceNonEmpty, report.DecisionLive},
	}
	for _, tt := range tests {
		t.Run(tt.viewer.String()+"/"+tt.presence.String(), func(t *testing.T) {
			got := report.Resolve(report.VisibilityInput{Viewer: tt.viewer, Presence: tt.presence, Enabled: true})
			if got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
			disabled := report.Resolve(report.VisibilityInput{Viewer: tt.viewer, Presence: tt.presence})
			if disabled != report.DecisionEmpty {
				t.Errorf("Resolve() disabled = %v, want empty", disabled)
			}
		})
	}
}

func TestViewerFor(t *testing.T) {
	complete := report.NewDateRange(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	start := complete.Start
	tests := []struct {
		name         string
		trainer      bool
		userSelected bool
		dates        report.DateRange
		want         report.Viewer
	}{
		{"client", false, false, report.DateRange{}, report.ViewerSelfClient},
		{"client with range", false, true, complete, report.ViewerSelfClient},
		{"trainer without user", true, false, complete, report.ViewerTrainerNoSelection},
		{"trainer with half range", true, true, report.DateRange{Start: start}, report.ViewerTrainerNoSelection},
		{"trainer with selection", true, true, complete, report.ViewerTrainerWithSelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := report.ViewerFor(tt.trainer, tt.userSelected, tt.dates); got != tt.want {
				t.Errorf("ViewerFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildRegion(t *testing.T) {
	ds := report.Classify([]report.RawRecord{
		{Title: report.TitleCrossfit, Points: []report.Point{
			{Date: "2024-01-01", Values: map[string]float64{"Burpees": 2, "totalRepeats": 30}},
		}},
	})

	weight, ok := report.BuildRegion("crossfit-weight-chart", ds.Crossfit, report.DecisionLive)
	if !ok {
		t.Fatal("expected known region")
	}
	if weight.HasData() {
		t.Error("expected weight view without totalWeight points to be empty")
	}
	repeats, _ := report.BuildRegion("crossfit-repeats-chart", ds.Crossfit, report.DecisionLive)
	if !repeats.HasData() || repeats.Title() != "Crossfit: Repeats" {
		t.Errorf("unexpected repeats region %+v", repeats)
	}
	placeholder, _ := report.BuildRegion("type-chart", nil, report.DecisionPlaceholder)
	if !placeholder.HasData() {
		t.Error("expected placeholder region to carry sample data")
	}
	empty, _ := report.BuildRegion("strength-chart", nil, report.DecisionEmpty)
	if empty.HasData() {
		t.Error("expected empty decision to carry no data")
	}
	if _, found := report.BuildRegion("pie-chart", nil, report.DecisionLive); found {
		t.Error("expected unknown region id to be rejected")
	}
}

func TestReport_StrengthOnlyClientSeenByTrainer(t *testing.T) {
	records, err := report.DecodeRecords(
		[]byte(`[{"title":"Strength exercises","data":[{"date":"2024-01-05","Squat":100}]}]`))
	if err != nil {
		t.Fatalf("DecodeRecords: %v", err)
	}
	ds := report.Classify(records)
	viewer := report.ViewerFor(true, true, report.NewDateRange(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
	if viewer != report.ViewerTrainerWithSelection {
		t.Fatalf("ViewerFor() = %v, want trainer with selection", viewer)
	}

	tests := []struct {
		chart report.Chart
		want  report.Decision
	}{
		{report.ChartType, report.DecisionEmpty},
		{report.ChartExercise, report.DecisionEmpty},
		{report.ChartStrength, report.DecisionLive},
		{report.ChartCardio, report.DecisionEmpty},
		{report.ChartCrossfit, report.DecisionEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.chart.String(), func(t *testing.T) {
			got := report.Resolve(report.VisibilityInput{
				Viewer:   viewer,
				Presence: ds.Get(tt.chart).Presence(),
				Enabled:  true,
			})
			if got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}

	if diff := cmp.Diff([]string{"Squat"}, ds.Strength.Categories.Sorted()); diff != "" {
		t.Errorf("strength categories mismatch (-want +got):\n%s", diff)
	}
	if len(ds.Strength.Points) != 1 {
		t.Fatalf("strength points = %d, want 1", len(ds.Strength.Points))
	}
	if v, ok := ds.Strength.Points[0].Value("Squat"); !ok || v != 100 {
		t.Errorf("Squat value = %v, %v, want 100", v, ok)
	}
}
