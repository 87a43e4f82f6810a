package chartrender_test

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"testing"

	"github.com/myrjola/coachreports/internal/chartrender"
	"github.com/myrjola/coachreports/internal/report"
)

func placeholderRegion(t *testing.T, id string) report.Region {
	t.Helper()
	r, ok := report.BuildRegion(id, nil, report.DecisionPlaceholder)
	if !ok {
		t.Fatalf("unknown region %q", id)
	}
	if !r.HasData() {
		t.Fatalf("placeholder region %q has no data", id)
	}
	return r
}

func TestPNG_RenderPNG(t *testing.T) {
	renderer := chartrender.PNG{Width: 640, Height: 360}
	for _, id := range report.RegionIDs() {
		t.Run(id, func(t *testing.T) {
			data, err := renderer.RenderPNG(context.Background(), placeholderRegion(t, id))
			if err != nil {
				t.Fatalf("RenderPNG: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 360 {
				t.Errorf("size = %dx%d, want 640x360", b.Dx(), b.Dy())
			}
		})
	}
}

func TestPNG_RenderPNGSinglePoint(t *testing.T) {
	records := []report.RawRecord{{Title: report.TitleStrength, Points: []report.Point{
		{Date: "2024-03-01", Values: map[string]float64{"Squat": 0}},
	}}}
	ds := report.Classify(records)
	region, _ := report.BuildRegion("strength-chart", ds.Strength, report.DecisionLive)

	data, err := chartrender.PNG{}.RenderPNG(context.Background(), region)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("expected PNG magic bytes")
	}
}

func TestPNG_RenderPNGEmptyRegion(t *testing.T) {
	region, _ := report.BuildRegion("cardio-energy-chart", nil, report.DecisionEmpty)
	_, err := chartrender.PNG{}.RenderPNG(context.Background(), region)
	if !errors.Is(err, chartrender.ErrNothingToDraw) {
		t.Errorf("err = %v, want ErrNothingToDraw", err)
	}
}

func TestHTML(t *testing.T) {
	tests := []struct {
		id   string
		want []string
	}{
		{"type-chart", []string{"Training types", "strength", `"type":"pie"`}},
		{"strength-chart", []string{"Back squat", "Bench press", `"type":"line"`, "2024-01-08"}},
		{"cardio-energy-chart", []string{"Energy (kcal)", "Sample data"}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			var buf bytes.Buffer
			if err := chartrender.HTML(&buf, placeholderRegion(t, tt.id)); err != nil {
				t.Fatalf("HTML: %v", err)
			}
			page := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(page, want) {
					t.Errorf("page lacks %q", want)
				}
			}
		})
	}
}

func TestHTML_EmptyRegion(t *testing.T) {
	region, _ := report.BuildRegion("type-chart", nil, report.DecisionEmpty)
	var buf bytes.Buffer
	if err := chartrender.HTML(&buf, region); !errors.Is(err, chartrender.ErrNothingToDraw) {
		t.Errorf("err = %v, want ErrNothingToDraw", err)
	}
	if buf.Len() != 0 {
		t.Error("expected nothing written")
	}
}
