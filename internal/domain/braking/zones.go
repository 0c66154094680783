package braking

import "sort"

// Zone is a run of braking events from one vehicle on one lap.
type Zone struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Lap       int     `json:"lap"`
	VehicleID string  `json:"vehicle_id"`
	Points    int     `json:"points"`
	// SpeedLoss is entry speed minus the lowest speed seen in the zone.
	SpeedLoss float64 `json:"speed_loss"`
}

// Zones merges events of the same vehicle and lap whose timestamps are at
// most gap seconds apart. Zones come back ordered by vehicle, lap and start;
// events of different cars may be interleaved.
func Zones(events []Event, gap float64) []Zone {
	events = append([]Event(nil), events...)
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.VehicleID != b.VehicleID {
			return a.VehicleID < b.VehicleID
		}
		if a.Lap != b.Lap {
			return a.Lap < b.Lap
		}
		return a.Timestamp < b.Timestamp
	})

	var (
		zones []Zone
		entry float64
		low   float64
		have  bool
	)
	flush := func() {
		if len(zones) == 0 {
			return
		}
		z := &zones[len(zones)-1]
		if have {
			z.SpeedLoss = entry - low
		}
	}

	for _, e := range events {
		if n := len(zones); n > 0 {
			z := &zones[n-1]
			if z.VehicleID == e.VehicleID && z.Lap == e.Lap && e.Timestamp >= z.End && e.Timestamp-z.End <= gap {
				z.End = e.Timestamp
				z.Points++
				if e.SpeedAfter != nil && have && *e.SpeedAfter < low {
					low = *e.SpeedAfter
				}
				continue
			}
		}
		flush()
		zones = append(zones, Zone{Start: e.Timestamp, End: e.Timestamp, Lap: e.Lap, VehicleID: e.VehicleID, Points: 1})
		have = e.SpeedBefore != nil
		if have {
			entry, low = *e.SpeedBefore, *e.SpeedBefore
			if e.SpeedAfter != nil && *e.SpeedAfter < low {
				low = *e.SpeedAfter
			}
		}
	}
	flush()
	return zones
}
