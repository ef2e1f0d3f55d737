// Package fitimport reads FIT activity files into raw workouts, so watch
// exports can be analyzed without the Strava API.
package fitimport

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tormoder/fit"

	marathon "github.com/lucasjlepore/marathon-check"
)

const localLayout = "2006-01-02T15:04:05Z"

// Decode reads one FIT activity and converts its first session. name becomes
// the workout name.
func Decode(r io.Reader, name string) (marathon.RawWorkout, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return marathon.RawWorkout{}, fmt.Errorf("decode FIT file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return marathon.RawWorkout{}, fmt.Errorf("activity FIT expected: %w", err)
	}
	if len(activity.Sessions) == 0 {
		return marathon.RawWorkout{}, fmt.Errorf("activity file has no session message")
	}
	session := activity.Sessions[0]

	w := marathon.RawWorkout{
		Name: name,
		Type: sportType(session.Sport),
	}

	start := validTime(session.StartTime)
	if start.IsZero() && len(activity.Records) > 0 {
		start = validTime(activity.Records[0].Timestamp)
	}
	if !start.IsZero() {
		w.StartDateLocal = start.Add(localOffset(activity)).Format(localLayout)
	}

	distance := positive(session.GetTotalDistanceScaled())
	if distance == 0 {
		distance = lastRecordDistance(activity.Records)
	}
	if distance > 0 {
		w.Distance = &distance
	}

	timer := positive(session.GetTotalTimerTimeScaled())
	elapsed := positive(session.GetTotalElapsedTimeScaled())
	moving := positive(session.GetTotalMovingTimeScaled())
	if elapsed == 0 {
		elapsed = timer
	}
	if moving == 0 {
		moving = timer
	}
	if elapsed > 0 || moving > 0 {
		m, e := int(math.Round(moving)), int(math.Round(elapsed))
		w.MovingTime, w.ElapsedTime = &m, &e
	}

	if hr := validUint8(session.AvgHeartRate); hr > 0 {
		v := float64(hr)
		w.AverageHeartrate = &v
	}
	if hr := validUint8(session.MaxHeartRate); hr > 0 {
		v := float64(hr)
		w.MaxHeartrate = &v
	}
	if ascent := validUint16(session.TotalAscent); ascent > 0 {
		v := float64(ascent)
		w.TotalElevationGain = &v
	}
	if cad := cadenceFromAny(session.GetAvgCadence()); cad > 0 {
		w.AverageCadence = &cad
	}
	return w, nil
}

// ReadFile decodes the FIT file at path.
func ReadFile(path string) (marathon.RawWorkout, error) {
	f, err := os.Open(path)
	if err != nil {
		return marathon.RawWorkout{}, fmt.Errorf("open FIT file: %w", err)
	}
	defer f.Close()
	return Decode(f, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// Load reads a single FIT file or every .fit file in a directory, in name
// order. Files in a directory that fail to decode are reported as warnings;
// a single file that fails is an error.
func Load(path string) ([]marathon.RawWorkout, []marathon.Warning, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		w, err := ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return []marathon.RawWorkout{w}, nil, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read dir %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".fit") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]marathon.RawWorkout, 0, len(names))
	var warnings []marathon.Warning
	for i, name := range names {
		w, err := ReadFile(filepath.Join(path, name))
		if err != nil {
			warnings = append(warnings, marathon.Warning{Index: i, Name: name, Reason: err.Error()})
			continue
		}
		pos := i
		w.Entry = &pos
		out = append(out, w)
	}
	return out, warnings, nil
}

func sportType(s fit.Sport) string {
	switch s {
	case fit.SportRunning:
		return "Run"
	case fit.SportCycling:
		return "Ride"
	case fit.SportWalking:
		return "Walk"
	case fit.SportHiking:
		return "Hike"
	case fit.SportSwimming:
		return "Swim"
	default:
		return fmt.Sprint(s)
	}
}

// localOffset is the device's UTC offset at recording time, taken from the
// activity message when it carries a local timestamp.
func localOffset(a *fit.ActivityFile) time.Duration {
	if a.Activity == nil {
		return 0
	}
	utc := validTime(a.Activity.Timestamp)
	local := validTime(a.Activity.LocalTimestamp)
	if utc.IsZero() || local.IsZero() {
		return 0
	}
	return local.Sub(utc).Round(15 * time.Minute)
}

func lastRecordDistance(records []*fit.RecordMsg) float64 {
	for i := len(records) - 1; i >= 0; i-- {
		if d := positive(records[i].GetDistanceScaled()); d > 0 {
			return d
		}
	}
	return 0
}

func validTime(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}

func validUint8(v uint8) uint8 {
	if v == math.MaxUint8 {
		return 0
	}
	return v
}

func validUint16(v uint16) uint16 {
	if v == math.MaxUint16 {
		return 0
	}
	return v
}

func cadenceFromAny(v any) float64 {
	switch x := v.(type) {
	case uint8:
		return float64(validUint8(x))
	case uint16:
		return float64(validUint16(x))
	case float64:
		return positive(x)
	default:
		return 0
	}
}

func positive(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return v
}
