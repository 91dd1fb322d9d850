package device

import (
	"fmt"
	"io"
	"strings"
)

const rule = "-----------------------:----------------------\n"

// Status is a point-in-time view of the device counters.
type Status struct {
	Device        string `json:"device"`
	Version       string `json:"version"`
	Open          int64  `json:"open"`
	OpenTotal     uint64 `json:"open_total"`
	Refills       uint64 `json:"refills"`
	BytesRead     uint64 `json:"bytes_read"`
	KBytes        uint64 `json:"kbytes"`
	ReseedsS      uint64 `json:"reseeds_s"`
	ReseedsX      uint64 `json:"reseeds_x"`
	ForcedReseeds uint64 `json:"forced_reseeds"`
	Lanes         int    `json:"lanes"`
	LaneWords     int    `json:"lane_words"`
	Closed        bool   `json:"closed"`
}

// Status reads the counters. Counters are loaded one by one, so a status
// taken under load may be a few operations apart between fields.
func (d *Device) Status() Status {
	refills := d.pool.Refills()
	return Status{
		Device:        d.name,
		Version:       Version,
		Open:          d.open.Load(),
		OpenTotal:     d.openTotal.Load(),
		Refills:       refills,
		BytesRead:     d.bytesRead.Load(),
		KBytes:        KBytes(refills, d.pool.LaneBytes()),
		ReseedsS:      d.reseedsS.Load(),
		ReseedsX:      d.reseedsX.Load(),
		ForcedReseeds: d.forced.Load(),
		Lanes:         d.pool.Lanes(),
		LaneWords:     d.pool.LaneWords(),
		Closed:        d.closed.Load(),
	}
}

// KBytes converts a refill count into KiB generated: each refill rewrites
// one lane of laneBytes.
func KBytes(refills uint64, laneBytes int) uint64 {
	return refills * uint64(laneBytes) / 1024
}

// WriteTo renders the status report.
func (s Status) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString(rule)
	fmt.Fprintf(&b, "Device                 : /dev/%s\n", s.Device)
	fmt.Fprintf(&b, "Module version         : %s\n", s.Version)
	fmt.Fprintf(&b, "Current open count     : %d\n", s.Open)
	fmt.Fprintf(&b, "Total open count       : %d\n", s.OpenTotal)
	fmt.Fprintf(&b, "Total refills          : %d\n", s.Refills)
	fmt.Fprintf(&b, "Total bytes read       : %d\n", s.BytesRead)
	fmt.Fprintf(&b, "Total K bytes          : %d\n", s.KBytes)
	fmt.Fprintf(&b, "PRNG1 reseed count     : %d\n", s.ReseedsS)
	fmt.Fprintf(&b, "PRNG2 reseed count     : %d\n", s.ReseedsX)
	fmt.Fprintf(&b, "Forced reseed count    : %d\n", s.ForcedReseeds)
	fmt.Fprintf(&b, "Lanes                  : %d x %d words\n", s.Lanes, s.LaneWords)
	b.WriteString(rule)
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func (s Status) String() string {
	var b strings.Builder
	_, _ = s.WriteTo(&b)
	return b.String()
}
