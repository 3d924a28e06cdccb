package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoomauto/zoomauto/pkg/actuator"
	"github.com/zoomauto/zoomauto/pkg/jobs"
	"github.com/zoomauto/zoomauto/pkg/recurrence"
)

const testPath = "/data/schedules.json"

func newTestFile(t *testing.T) (*File, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	f := NewFile(fs, testPath)
	f.now = func() time.Time { return time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC) }
	return f, fs
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	f, _ := newTestFile(t)
	js, err := f.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, js)
}

func TestSaveLoadKeepsEveryRuleKind(t *testing.T) {
	f, _ := newTestFile(t)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.Local)
	runAt := time.Date(2024, 4, 1, 9, 15, 0, 0, time.Local)
	anchor := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	in := []jobs.Job{
		{ID: "a", Name: "standup", Hour: 9, Minute: 0, Enabled: true, Recurrence: recurrence.Daily{},
			Target: actuator.Target{MeetingID: "1234567890", Secret: "pw"}, Anchor: anchor},
		{ID: "b", Name: "once", Hour: 9, Minute: 15, Recurrence: recurrence.Once{RunAt: runAt},
			Target: actuator.Target{URI: "https://zoom.us/j/1"}},
		{ID: "c", Hour: 7, Recurrence: recurrence.Weekly{Days: []time.Weekday{time.Monday, time.Sunday}},
			Target: actuator.Target{MeetingID: "1"}},
		{ID: "d", Recurrence: recurrence.Weekdays{}, Target: actuator.Target{MeetingID: "1"}, RemindBefore: 5 * time.Minute},
		{ID: "e", Target: actuator.Target{MeetingID: "1"}, Recurrence: recurrence.Custom{
			Interval: 2, Unit: recurrence.Week, Days: []time.Weekday{time.Tuesday}, End: &end}},
		{ID: "f", Target: actuator.Target{MeetingID: "1"}, Recurrence: recurrence.Custom{Interval: 3, Unit: recurrence.Month}},
	}
	require.NoError(t, f.SaveAll(in))

	out, err := f.LoadAll()
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Target, out[i].Target)
		assert.Equal(t, in[i].Hour, out[i].Hour)
		assert.Equal(t, in[i].RemindBefore, out[i].RemindBefore)
		assert.True(t, recurrence.Equal(in[i].Recurrence, out[i].Recurrence), "job %s: %v != %v",
			in[i].ID, in[i].Recurrence, out[i].Recurrence)
	}
	assert.True(t, out[0].Anchor.Equal(anchor))
}

func TestSaveUsesLegacyLayout(t *testing.T) {
	f, fs := newTestFile(t)
	require.NoError(t, f.SaveAll([]jobs.Job{{
		ID: "x", Recurrence: recurrence.Weekly{Days: []time.Weekday{time.Monday}},
		Target: actuator.Target{MeetingID: "1"},
	}}))
	data, err := afero.ReadFile(fs, testPath)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "\n    \"x\": {")
	assert.Contains(t, s, `"type": "weekly"`)
	assert.Contains(t, s, `"days_of_week": [`)
	assert.Contains(t, s, `"zoom_link": ""`)
}

func TestLoadLegacyFile(t *testing.T) {
	f, fs := newTestFile(t)
	legacy := `{
    "k1": {"id": "k1", "name": "old", "hour": 8, "minute": 30, "meeting_id": "123",
           "password": "", "zoom_link": "", "enabled": true},
    "k2": {"id": "k2", "name": "custom", "hour": 10, "minute": 0, "meeting_id": "123",
           "password": "", "zoom_link": "", "enabled": true,
           "recurrence": {"type": "custom", "details": {"interval": 2, "unit": "tuần", "days_of_week": [0, 6]}}},
    "k3": {"id": "k3", "name": "one", "hour": 0, "minute": 0, "meeting_id": "1",
           "password": "", "zoom_link": "", "enabled": false,
           "recurrence": {"type": "once", "run_date": "2024-05-01T13:45:00"}}
}`
	require.NoError(t, afero.WriteFile(fs, testPath, []byte(legacy), 0o644))

	out, err := f.LoadAll()
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, recurrence.Daily{}, out[0].Recurrence)

	c, ok := out[1].Recurrence.(recurrence.Custom)
	require.True(t, ok)
	assert.Equal(t, recurrence.Week, c.Unit)
	assert.Equal(t, 2, c.Interval)
	assert.Equal(t, []time.Weekday{time.Monday, time.Sunday}, c.Days)

	o, ok := out[2].Recurrence.(recurrence.Once)
	require.True(t, ok)
	assert.Equal(t, 13, o.RunAt.Hour())
	assert.Equal(t, 45, o.RunAt.Minute())
}

func TestLoadCorruptFile(t *testing.T) {
	f, fs := newTestFile(t)
	require.NoError(t, afero.WriteFile(fs, testPath, []byte("{not json"), 0o644))

	_, err := f.LoadAll()
	require.Error(t, err)
	assert.True(t, errors.Is(err, jobs.ErrCorrupt))

	dst, err := f.Quarantine()
	require.NoError(t, err)
	assert.Equal(t, testPath+".20240305143000.bak", dst)
	ok, _ := afero.Exists(fs, dst)
	assert.True(t, ok)
	ok, _ = afero.Exists(fs, testPath)
	assert.False(t, ok)
}

func TestLoadUnknownRecurrenceIsCorrupt(t *testing.T) {
	f, fs := newTestFile(t)
	require.NoError(t, afero.WriteFile(fs, testPath,
		[]byte(`{"a": {"id": "a", "recurrence": {"type": "fortnightly"}}}`), 0o644))
	_, err := f.LoadAll()
	assert.ErrorIs(t, err, jobs.ErrCorrupt)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	f, fs := newTestFile(t)
	require.NoError(t, f.SaveAll(nil))
	require.NoError(t, f.SaveAll([]jobs.Job{{ID: "a", Recurrence: recurrence.Daily{}}}))
	entries, err := afero.ReadDir(fs, "/data")
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}
	assert.Len(t, entries, 1)
}

func TestChangedIgnoresOwnWrites(t *testing.T) {
	f, fs := newTestFile(t)
	require.NoError(t, f.SaveAll([]jobs.Job{{ID: "a", Recurrence: recurrence.Daily{}}}))

	changed, err := f.Changed()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, afero.WriteFile(fs, testPath, []byte(`{}`), 0o644))
	changed, err = f.Changed()
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = f.LoadAll()
	require.NoError(t, err)
	changed, _ = f.Changed()
	assert.False(t, changed)
}
