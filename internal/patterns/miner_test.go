package patterns

import (
	"strings"
	"testing"
	"time"

	"github.com/ranscope/trace-engine/internal/models"
)

func timelineOf(entity string, labels ...string) models.Timeline {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	tl := models.Timeline{EntityID: entity}
	for i, label := range labels {
		msg := &models.RrcMessage{
			EntityID:  entity,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Type:      models.RrcMessageType(label),
		}
		tl.Entries = append(tl.Entries, models.TimelineEntry{
			Kind: models.EntryRrc,
			Time: msg.Timestamp,
			Rrc:  msg,
		})
	}
	return tl
}

func TestMineCountsSlidingWindows(t *testing.T) {
	m := NewMiner(3, 0.01, nil)
	tl := timelineOf("ue1", "a", "b", "c", "a", "b", "c", "a", "b", "c")

	res := m.Mine([]models.Timeline{tl})
	if len(res.Common) == 0 {
		t.Fatal("no common patterns mined")
	}
	top := res.Common[0]
	if got := strings.Join(top.Labels, ","); got != "a,b,c" {
		t.Fatalf("top pattern = %s, want a,b,c", got)
	}
	if top.Count != 3 {
		t.Errorf("top count = %d, want 3", top.Count)
	}
	// 9 labels with window 3 produce 7 windows.
	if want := 3.0 / 7.0; top.Frequency != want {
		t.Errorf("top frequency = %v, want %v", top.Frequency, want)
	}
}

func TestMineShortTimelineWholeSequence(t *testing.T) {
	m := NewMiner(5, 0.01, nil)
	tl := timelineOf("ue1", "RRCSetupRequest", "RRCSetup")

	res := m.Mine([]models.Timeline{tl})
	if len(res.Common) != 1 {
		t.Fatalf("patterns = %d, want 1", len(res.Common))
	}
	if got := strings.Join(res.Common[0].Labels, ","); got != "RRCSetupRequest,RRCSetup" {
		t.Errorf("pattern = %s", got)
	}
}

func TestMineRareSeparation(t *testing.T) {
	m := NewMiner(2, 0.10, nil)
	timelines := []models.Timeline{
		timelineOf("ue1", "a", "b", "a", "b", "a", "b", "a", "b", "a", "b", "a"),
		timelineOf("ue2", "x", "y"),
	}

	res := m.Mine(timelines)
	foundRare := false
	for _, p := range res.Rare {
		if strings.Join(p.Labels, ",") == "x,y" {
			foundRare = true
		}
	}
	if !foundRare {
		t.Errorf("x,y should be rare: common=%v rare=%v", res.Common, res.Rare)
	}
	for _, p := range res.Common {
		if p.Frequency < 0.10 {
			t.Errorf("common pattern below threshold: %+v", p)
		}
	}
}

func TestMineEmpty(t *testing.T) {
	m := NewMiner(0, 0, nil)
	res := m.Mine(nil)
	if len(res.Common) != 0 || len(res.Rare) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestMineDeterministicOrder(t *testing.T) {
	m := NewMiner(2, 0.01, nil)
	timelines := []models.Timeline{timelineOf("ue1", "a", "b", "c", "d")}
	first := m.Mine(timelines)
	for i := 0; i < 5; i++ {
		again := m.Mine(timelines)
		if len(again.Common) != len(first.Common) {
			t.Fatal("non-deterministic pattern count")
		}
		for j := range again.Common {
			if strings.Join(again.Common[j].Labels, ",") != strings.Join(first.Common[j].Labels, ",") {
				t.Fatal("non-deterministic pattern order")
			}
		}
	}
}
