package engine

// BuildObjective returns the per-recipe cost: the scarcity-weighted raw
// resource draw, Σ (-m[j,r]) / L_j over raw resources j the recipe
// consumes, plus epsilon so that idle recipes are never free.
func BuildObjective(m *FlowMatrix, limits map[int]float64, epsilon float64) []float64 {
	_, n := m.Dims()
	c := make([]float64, n)
	for col := range c {
		c[col] = epsilon
	}
	if m.Coeffs == nil {
		return c
	}

	for row, id := range m.ItemIDs {
		limit, raw := limits[id]
		if !raw || limit <= 0 {
			continue
		}
		for col := range c {
			if v := m.Coeffs.At(row, col); v < 0 {
				c[col] += -v / limit
			}
		}
	}
	return c
}
