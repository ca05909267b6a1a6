package engine

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Stats describes one Run.
type Stats struct {
	Segments   int
	ImageCalls int
	VideoCalls int
	Reused     int // segments served by copying the base clip
	Frames     int // last frames extracted in chain mode

	ImageTime  time.Duration
	SynthTime  time.Duration
	ConcatTime time.Duration
	TotalTime  time.Duration
}

func (s Stats) report(w io.Writer, build string) {
	fmt.Fprintf(w,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Base Image: %.2fs\n"+
			"Video Synthesis: %.2fs (%d calls, %d reused)\n"+
			"Concatenation: %.2fs\n"+
			"Segments: %d\n"+
			"----------------------------\n",
		build, s.TotalTime.Seconds(), s.ImageTime.Seconds(), s.SynthTime.Seconds(),
		s.VideoCalls, s.Reused, s.ConcatTime.Seconds(), s.Segments,
	)
}

func (s Stats) appendLog(path, videoName string, now time.Time) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "[%s] Video: %s | Segments: %d | Calls: %d | Reused: %d | Total: %.2fs | Synth: %.2fs | Concat: %.2fs\n",
		now.Format("2006-01-02 15:04:05"),
		videoName,
		s.Segments,
		s.VideoCalls,
		s.Reused,
		s.TotalTime.Seconds(),
		s.SynthTime.Seconds(),
		s.ConcatTime.Seconds(),
	)
	return err
}
