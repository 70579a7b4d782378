package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Observation is one response value tagged with its two factor levels.
type Observation struct {
	Response float64
	FactorA  string
	FactorB  string
}

// TableRow is one line of the ANOVA decomposition. F and P are nil on the
// residual row and whenever the statistic is undefined.
type TableRow struct {
	Source string
	SumSq  float64
	DF     float64
	MeanSq float64
	F      *float64
	P      *float64
}

// CellMean summarizes one (FactorA, FactorB) design cell: mean, sample
// standard deviation, group size and a 1.96-normal confidence interval.
type CellMean struct {
	FactorA string
	FactorB string
	Mean    float64
	Std     float64
	N       int
	CILower float64
	CIUpper float64
}

// TwoWayResult is a complete two-factor analysis with interaction.
type TwoWayResult struct {
	Table             []TableRow
	MainEffectA       float64
	MainEffectB       float64
	InteractionEffect float64
	EtaSquaredA       float64
	EtaSquaredB       float64
	EtaSquaredInter   float64
	AdjustedRSquared  float64
	CellMeans         []CellMean
}

// TwoWayANOVA fits response ~ A + B + A:B with treatment-coded dummies and
// decomposes variance into Type II sums of squares via nested least-squares
// fits: SS(A|B), SS(B|A) and SS(AB|A,B). The table rows are named after
// sourceA, sourceB, their interaction, and "Residual".
func TwoWayANOVA(obs []Observation, sourceA, sourceB string) (*TwoWayResult, error) {
	if len(obs) < 4 {
		return nil, fmt.Errorf("anova: need at least 4 observations, got %d", len(obs))
	}
	levelsA := factorLevels(obs, func(o Observation) string { return o.FactorA })
	levelsB := factorLevels(obs, func(o Observation) string { return o.FactorB })
	if len(levelsA) < 2 {
		return nil, fmt.Errorf("anova: factor %s has %d level(s), need at least 2", sourceA, len(levelsA))
	}
	if len(levelsB) < 2 {
		return nil, fmt.Errorf("anova: factor %s has %d level(s), need at least 2", sourceB, len(levelsB))
	}

	n := len(obs)
	y := make([]float64, n)
	for i, o := range obs {
		y[i] = o.Response
	}

	dummiesA := dummyColumns(obs, levelsA, func(o Observation) string { return o.FactorA })
	dummiesB := dummyColumns(obs, levelsB, func(o Observation) string { return o.FactorB })
	var dummiesAB [][]float64
	for _, ca := range dummiesA {
		for _, cb := range dummiesB {
			col := make([]float64, n)
			for i := range col {
				col[i] = ca[i] * cb[i]
			}
			dummiesAB = append(dummiesAB, col)
		}
	}

	intercept := make([]float64, n)
	for i := range intercept {
		intercept[i] = 1
	}

	fitOnlyA, err := leastSquares(designMatrix(n, [][]float64{intercept}, dummiesA), y)
	if err != nil {
		return nil, err
	}
	fitOnlyB, err := leastSquares(designMatrix(n, [][]float64{intercept}, dummiesB), y)
	if err != nil {
		return nil, err
	}
	fitAB, err := leastSquares(designMatrix(n, [][]float64{intercept}, dummiesA, dummiesB), y)
	if err != nil {
		return nil, err
	}
	fitFull, err := leastSquares(designMatrix(n, [][]float64{intercept}, dummiesA, dummiesB, dummiesAB), y)
	if err != nil {
		return nil, err
	}

	ssA := nonNegative(fitOnlyB.rss - fitAB.rss)
	ssB := nonNegative(fitOnlyA.rss - fitAB.rss)
	ssI := nonNegative(fitAB.rss - fitFull.rss)
	ssRes := fitFull.rss

	dfA := float64(fitAB.rank - fitOnlyB.rank)
	dfB := float64(fitAB.rank - fitOnlyA.rank)
	dfI := float64(fitFull.rank - fitAB.rank)
	dfRes := float64(n - fitFull.rank)

	msRes := 0.0
	if dfRes > 0 {
		msRes = ssRes / dfRes
	}
	fTest := func(ss, df float64) (*float64, *float64) {
		if df <= 0 || dfRes <= 0 || msRes <= 0 {
			return nil, nil
		}
		f := (ss / df) / msRes
		p := distuv.F{D1: df, D2: dfRes}.Survival(f)
		return &f, &p
	}

	fA, pA := fTest(ssA, dfA)
	fB, pB := fTest(ssB, dfB)
	fI, pI := fTest(ssI, dfI)

	table := []TableRow{
		{Source: sourceA, SumSq: ssA, DF: dfA, MeanSq: safeDiv(ssA, dfA), F: fA, P: pA},
		{Source: sourceB, SumSq: ssB, DF: dfB, MeanSq: safeDiv(ssB, dfB), F: fB, P: pB},
		{Source: sourceA + " × " + sourceB, SumSq: ssI, DF: dfI, MeanSq: safeDiv(ssI, dfI), F: fI, P: pI},
		{Source: "Residual", SumSq: ssRes, DF: dfRes, MeanSq: msRes},
	}

	ssTotal := ssA + ssB + ssI + ssRes
	etaA, etaB, etaI := 0.0, 0.0, 0.0
	if ssTotal > 0 {
		etaA = ssA / ssTotal
		etaB = ssB / ssTotal
		etaI = ssI / ssTotal
	}

	cellMeans := groupCellMeans(obs, levelsA, levelsB)

	return &TwoWayResult{
		Table:             table,
		MainEffectA:       levelMeanSpread(obs, levelsA, func(o Observation) string { return o.FactorA }),
		MainEffectB:       levelMeanSpread(obs, levelsB, func(o Observation) string { return o.FactorB }),
		InteractionEffect: interactionSpread(cellMeans),
		EtaSquaredA:       etaA,
		EtaSquaredB:       etaB,
		EtaSquaredInter:   etaI,
		AdjustedRSquared:  adjustedRSquared(y, ssRes, fitFull.rank),
		CellMeans:         cellMeans,
	}, nil
}

type lsFit struct {
	rss  float64
	rank int
}

// leastSquares solves min ‖y − Xb‖² through a rank-revealing SVD
// pseudo-inverse, so rank-deficient designs (missing cells) degrade the
// same way reference OLS implementations do.
func leastSquares(x *mat.Dense, y []float64) (lsFit, error) {
	m, cols := x.Dims()

	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return lsFit{}, fmt.Errorf("anova: svd failed to converge")
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	const machEps = 2.220446049250313e-16
	tol := float64(maxInt(m, cols)) * machEps * values[0]

	yVec := mat.NewVecDense(m, y)
	var c mat.VecDense
	c.MulVec(u.T(), yVec)

	rank := 0
	w := mat.NewVecDense(len(values), nil)
	for i, s := range values {
		if s > tol {
			w.SetVec(i, c.AtVec(i)/s)
			rank++
		}
	}

	var coef mat.VecDense
	coef.MulVec(&v, w)

	var fitted mat.VecDense
	fitted.MulVec(x, &coef)

	rss := 0.0
	for i := 0; i < m; i++ {
		r := y[i] - fitted.AtVec(i)
		rss += r * r
	}
	return lsFit{rss: rss, rank: rank}, nil
}

func designMatrix(n int, groups ...[][]float64) *mat.Dense {
	var cols [][]float64
	for _, g := range groups {
		cols = append(cols, g...)
	}
	x := mat.NewDense(n, len(cols), nil)
	for j, col := range cols {
		x.SetCol(j, col)
	}
	return x
}

// dummyColumns builds treatment-coded indicators, dropping the first level
// as the reference.
func dummyColumns(obs []Observation, levels []string, key func(Observation) string) [][]float64 {
	cols := make([][]float64, 0, len(levels)-1)
	for _, level := range levels[1:] {
		col := make([]float64, len(obs))
		for i, o := range obs {
			if key(o) == level {
				col[i] = 1
			}
		}
		cols = append(cols, col)
	}
	return cols
}

func factorLevels(obs []Observation, key func(Observation) string) []string {
	seen := map[string]bool{}
	var levels []string
	for _, o := range obs {
		if k := key(o); !seen[k] {
			seen[k] = true
			levels = append(levels, k)
		}
	}
	sort.Strings(levels)
	return levels
}

// levelMeanSpread is the main effect: the spread between the best and
// worst factor-level means.
func levelMeanSpread(obs []Observation, levels []string, key func(Observation) string) float64 {
	min, max := math.Inf(1), math.Inf(-1)
	for _, level := range levels {
		var sum float64
		var n int
		for _, o := range obs {
			if key(o) == level {
				sum += o.Response
				n++
			}
		}
		if n == 0 {
			continue
		}
		m := sum / float64(n)
		if m < min {
			min = m
		}
		if m > max {
			max = m
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return max - min
}

// interactionSpread is the sample standard deviation of the cell means; it
// needs at least a 2×2 design to be meaningful.
func interactionSpread(cells []CellMean) float64 {
	if len(cells) < 4 {
		return 0
	}
	means := make([]float64, len(cells))
	for i, c := range cells {
		means[i] = c.Mean
	}
	return SampleStd(means)
}

func groupCellMeans(obs []Observation, levelsA, levelsB []string) []CellMean {
	var cells []CellMean
	for _, la := range levelsA {
		for _, lb := range levelsB {
			var values []float64
			for _, o := range obs {
				if o.FactorA == la && o.FactorB == lb {
					values = append(values, o.Response)
				}
			}
			if len(values) == 0 {
				continue
			}
			m := Mean(values)
			sd := SampleStd(values)
			half := 1.96 * sd / math.Sqrt(float64(len(values)))
			cells = append(cells, CellMean{
				FactorA: la,
				FactorB: lb,
				Mean:    m,
				Std:     sd,
				N:       len(values),
				CILower: m - half,
				CIUpper: m + half,
			})
		}
	}
	return cells
}

func adjustedRSquared(y []float64, ssRes float64, rank int) float64 {
	n := len(y)
	dfRes := float64(n - rank)
	if dfRes <= 0 {
		return 0
	}
	tss := 0.0
	m := Mean(y)
	for _, v := range y {
		d := v - m
		tss += d * d
	}
	if tss == 0 {
		return 0
	}
	r2 := 1 - ssRes/tss
	return 1 - (1-r2)*float64(n-1)/dfRes
}

func nonNegative(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
