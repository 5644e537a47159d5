package mjpeg

import "sync/atomic"

// Stats counts stream activity. All fields are safe for concurrent use.
type Stats struct {
	FramesSent      atomic.Int64
	BytesSent       atomic.Int64
	Transcoded      atomic.Int64
	CaptureErrors   atomic.Int64
	TranscodeErrors atomic.Int64
	Disconnects     atomic.Int64
	ActiveStreams   atomic.Int64
	Stills          atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	FramesSent      int64 `json:"frames_sent"`
	BytesSent       int64 `json:"bytes_sent"`
	Transcoded      int64 `json:"transcoded"`
	CaptureErrors   int64 `json:"capture_errors"`
	TranscodeErrors int64 `json:"transcode_errors"`
	Disconnects     int64 `json:"disconnects"`
	ActiveStreams   int64 `json:"active_streams"`
	Stills          int64 `json:"stills"`
}

// Snapshot reads every counter.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		FramesSent:      s.FramesSent.Load(),
		BytesSent:       s.BytesSent.Load(),
		Transcoded:      s.Transcoded.Load(),
		CaptureErrors:   s.CaptureErrors.Load(),
		TranscodeErrors: s.TranscodeErrors.Load(),
		Disconnects:     s.Disconnects.Load(),
		ActiveStreams:   s.ActiveStreams.Load(),
		Stills:          s.Stills.Load(),
	}
}
