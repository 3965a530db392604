package disaster

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pixil98/go-settle/internal/settlement"
	"github.com/pixil98/go-testutil"
)

func warningEvent(t0 time.Time, lead time.Duration) *settlement.DisasterEvent {
	return &settlement.DisasterEvent{
		Id:       "d1",
		Type:     "wildfire",
		Severity: 60,
		Biome:    "forest",
		Phase:    settlement.PhaseWarning,
		WarnedAt: t0,
		ImpactAt: t0.Add(lead),
	}
}

func TestDirector_Advisory_DefaultTemplate(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	d := newTestDirector(nil, nil)
	s := testDisasterSettlement()

	got := d.Advisory(context.Background(), s, warningEvent(t0, time.Hour))

	if !strings.Contains(got, "Wildfire warning for settlement home-1") {
		t.Errorf("advisory %q missing the header", got)
	}
	if !strings.Contains(got, "severity 60") {
		t.Errorf("advisory %q missing the severity", got)
	}
	if !strings.Contains(got, "1 hour") {
		t.Errorf("advisory %q missing the lead time", got)
	}
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 80 {
			t.Errorf("line longer than 80 columns: %q", line)
		}
	}
}

func TestDirector_Advisory_CustomTemplate(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	disasters := testDisasters()
	disasters.records["wildfire"].Advisory = "{{ .Disaster | upper }} inbound. Impact in {{ .Lead }}. Shelter in place."
	d := NewDirector(disasters, testBiomes(nil), testTiles(), testStructureSpecs(), DefaultTuning())
	s := testDisasterSettlement()

	got := d.Advisory(context.Background(), s, warningEvent(t0, 30*time.Minute))

	testutil.AssertEqual(t, "advisory", got, "WILDFIRE inbound. Impact in 30 minutes. Shelter in place.")
}

func TestDirector_Advisory_UnknownTypeTitleCased(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	d := newTestDirector(nil, nil)
	s := testDisasterSettlement()
	ev := warningEvent(t0, time.Hour)
	ev.Type = "dust-storm"

	got := d.Advisory(context.Background(), s, ev)

	if !strings.Contains(got, "Dust-Storm warning for settlement home-1") {
		t.Errorf("advisory %q missing the title-cased fallback name", got)
	}
}

func TestDirector_Advisory_BadTemplateFallsBack(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	disasters := testDisasters()
	disasters.records["wildfire"].Advisory = "{{ .Broken"
	d := NewDirector(disasters, testBiomes(nil), testTiles(), testStructureSpecs(), DefaultTuning())
	s := testDisasterSettlement()

	got := d.Advisory(context.Background(), s, warningEvent(t0, time.Hour))

	testutil.AssertEqual(t, "advisory", got,
		"Wildfire warning for settlement home-1: severity 60, impact expected in 1 hour.")
}
