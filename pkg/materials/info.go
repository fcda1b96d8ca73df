package materials

import (
	"fmt"
	"io"
)

// MaterialInfo describes one material in a Report.
type MaterialInfo struct {
	Name    string `json:"name"`
	GroupID int    `json:"group_id"`
	Volumes []int  `json:"volumes"`
	State   string `json:"state,omitempty"`
}

// BoundaryInfo describes one boundary in a Report.
type BoundaryInfo struct {
	Name     string `json:"name"`
	GroupID  int    `json:"group_id"`
	Surfaces []int  `json:"surfaces"`
}

// Report is a snapshot of the tracker.
type Report struct {
	Materials  []MaterialInfo `json:"materials"`
	Boundaries []BoundaryInfo `json:"boundaries"`
}

// Info resolves every material to its volume ids and every boundary to its
// surface ids.
func (t *Tracker) Info() (*Report, error) {
	r := &Report{
		Materials:  make([]MaterialInfo, 0, len(t.materials)),
		Boundaries: make([]BoundaryInfo, 0, len(t.boundaries)),
	}
	for _, m := range t.materials {
		vols, err := m.VolumeIDs(t.k)
		if err != nil {
			return nil, &TrackingError{Op: "decompose material", Name: m.Name, Err: err}
		}
		r.Materials = append(r.Materials, MaterialInfo{
			Name:    m.Name,
			GroupID: m.GroupID,
			Volumes: vols,
			State:   m.State(),
		})
	}
	for _, b := range t.boundaries {
		r.Boundaries = append(r.Boundaries, BoundaryInfo{
			Name:     b.Name,
			GroupID:  b.GroupID,
			Surfaces: b.SurfaceIDs(),
		})
	}
	return r, nil
}

// PrintInfo writes a plain-text dump of Info to w.
func (t *Tracker) PrintInfo(w io.Writer) error {
	r, err := t.Info()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Materials:"); err != nil {
		return err
	}
	for _, m := range r.Materials {
		if _, err := fmt.Fprintf(w, "%s: Volumes %v\n", m.Name, m.Volumes); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "\nBoundaries:"); err != nil {
		return err
	}
	for _, b := range r.Boundaries {
		if _, err := fmt.Fprintf(w, "%s: Surfaces %v\n", b.Name, b.Surfaces); err != nil {
			return err
		}
	}
	return nil
}
