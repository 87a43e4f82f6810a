package report_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/coachreports/internal/report"
)

func TestSelection_Aggregates(t *testing.T) {
	all := report.SelectAllCharts()
	if !all.AllChecked() || all.Indeterminate() || all.NoneChecked() {
		t.Error("expected all charts checked")
	}

	some := all.Toggle(report.ChartCardio)
	if some.AllChecked() || !some.Indeterminate() {
		t.Error("expected an indeterminate selection after unchecking one chart")
	}
	if !all.Enabled(report.ChartCardio) {
		t.Error("Toggle mutated the original selection")
	}

	none := report.Selection{}
	if !none.NoneChecked() || none.Indeterminate() {
		t.Error("expected an empty selection")
	}
	if diff := cmp.Diff([]string{}, none.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestSelection_Keys(t *testing.T) {
	sel := report.SelectionOf(report.ChartCrossfit, report.ChartType)
	if diff := cmp.Diff([]string{"typeChart", "crossfitChart"}, sel.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	parsed, err := report.SelectionFromKeys([]string{"crossfitChart", "typeChart"})
	if err != nil {
		t.Fatalf("SelectionFromKeys() error = %v", err)
	}
	if parsed != sel {
		t.Errorf("SelectionFromKeys() = %v, want %v", parsed.Keys(), sel.Keys())
	}

	if _, err = report.SelectionFromKeys([]string{"pieChart"}); !errors.Is(err, report.ErrUnknownChart) {
		t.Errorf("SelectionFromKeys() error = %v, want ErrUnknownChart", err)
	}
}

func TestSelection_JSON(t *testing.T) {
	sel := report.SelectionOf(report.ChartStrength)
	b, err := json.Marshal(sel)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"cardioChart":false,"crossfitChart":false,"exerciseChart":false,"strengthChart":true,"typeChart":false}`
	if string(b) != want {
		t.Errorf("Marshal() = %s, want %s", b, want)
	}

	var got report.Selection
	if err = json.Unmarshal([]byte(`{"strengthChart": true, "typeChart": false}`), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got != sel {
		t.Errorf("Unmarshal() = %v, want %v", got.Keys(), sel.Keys())
	}
	if err = json.Unmarshal([]byte(`{"barChart": true}`), &got); !errors.Is(err, report.ErrUnknownChart) {
		t.Errorf("Unmarshal() error = %v, want ErrUnknownChart", err)
	}
}
