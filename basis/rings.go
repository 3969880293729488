package basis

import (
	"math"
	"sort"
)

// pixel is one cell of the kernel grid in polar form. The angle is measured
// counterclockwise from the positive x axis, with the y axis pointing up, so
// row 0 of the grid is the top.
type pixel struct {
	row, col int
	angle    float64
}

// ring groups the grid cells at one integer squared radius from the center.
// Rotations map each ring onto itself, so the kernel constraint decouples
// ring by ring.
type ring struct {
	radiusSq int
	pixels   []pixel
}

func gridRings(kernelSize int) []ring {
	c := (kernelSize - 1) / 2
	byR2 := make(map[int][]pixel)
	for row := 0; row < kernelSize; row++ {
		for col := 0; col < kernelSize; col++ {
			dy := c - row
			dx := col - c
			r2 := dx*dx + dy*dy
			var a float64
			if r2 != 0 {
				a = math.Atan2(float64(dy), float64(dx))
				if a < 0 {
					a += 2 * math.Pi
				}
			}
			byR2[r2] = append(byR2[r2], pixel{row: row, col: col, angle: a})
		}
	}
	radii := make([]int, 0, len(byR2))
	for r2 := range byR2 {
		radii = append(radii, r2)
	}
	sort.Ints(radii)
	rings := make([]ring, 0, len(radii))
	for _, r2 := range radii {
		rings = append(rings, ring{radiusSq: r2, pixels: byR2[r2]})
	}
	return rings
}

// sampleAngles returns the sorted distinct angles a ring is sampled at. When
// a regular representation is involved the kernel is read at every group
// shifted angle as well, so the shifted copies count toward resolution. The
// center cell resolves nothing, it is a single point fixed by every rotation.
func sampleAngles(r ring, order int, shifted bool) []float64 {
	if r.radiusSq == 0 {
		return []float64{0}
	}
	shifts := 1
	if shifted {
		shifts = order
	}
	all := make([]float64, 0, len(r.pixels)*shifts)
	for _, p := range r.pixels {
		for s := 0; s < shifts; s++ {
			a := math.Mod(p.angle-2*math.Pi*float64(s)/float64(order), 2*math.Pi)
			if a < 0 {
				a += 2 * math.Pi
			}
			all = append(all, a)
		}
	}
	sort.Float64s(all)

	const eps = 1e-9
	uniq := []float64{all[0]}
	for _, a := range all[1:] {
		if a-uniq[len(uniq)-1] > eps {
			uniq = append(uniq, a)
		}
	}
	// The list is circular: a trailing angle within eps of the first one
	// plus a full turn is a duplicate.
	if len(uniq) > 1 && uniq[0]+2*math.Pi-uniq[len(uniq)-1] <= eps {
		uniq = uniq[:len(uniq)-1]
	}
	return uniq
}
