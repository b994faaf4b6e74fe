package frame

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/quantseries/internal/config"
	"github.com/aristath/quantseries/pkg/timeseries"
)

// Strategy selects how portfolio weights are derived.
type Strategy string

const (
	// FixedWeights uses the weights set on the Frame.
	FixedWeights Strategy = "fixed"
	// EqualWeights assigns 1/n to every constituent.
	EqualWeights Strategy = "equal"
	// InverseVolatility weights constituents by normalized 1/vol.
	InverseVolatility Strategy = "inverse_vol"
	// EqualRisk solves for weights where every constituent contributes
	// the same share of portfolio variance.
	EqualRisk Strategy = "equal_risk"
	// MinimumVariance solves for the least-variance fully invested
	// portfolio.
	MinimumVariance Strategy = "minimum_variance"
)

// PortfolioBuilder derives constituent weights from a Frame and combines
// its return streams into a portfolio value series.
type PortfolioBuilder struct {
	cfg *config.Defaults
	log zerolog.Logger
}

// NewPortfolioBuilder creates a portfolio builder with the given engine
// defaults.
func NewPortfolioBuilder(cfg *config.Defaults, log zerolog.Logger) *PortfolioBuilder {
	return &PortfolioBuilder{
		cfg: cfg,
		log: log.With().Str("component", "portfolio").Logger(),
	}
}

// MakePortfolio combines the frame's constituent returns under the given
// strategy's weights and compounds them into a value series starting at
// 1.0 on the first aligned date.
func (b *PortfolioBuilder) MakePortfolio(f *Frame, name string, strategy Strategy) (*timeseries.Series, error) {
	weights, err := b.Weights(f, strategy)
	if err != nil {
		return nil, err
	}
	b.log.Debug().
		Str("portfolio", name).
		Str("strategy", string(strategy)).
		Floats64("weights", weights).
		Msg("building portfolio")

	rets := f.columnReturns()
	values := make([]float64, len(f.dates))
	values[0] = 1.0
	for t := 1; t < len(values); t++ {
		portRet := 0.0
		for i, w := range weights {
			portRet += w * rets[i][t-1]
		}
		values[t] = values[t-1] * (1 + portRet)
	}
	return timeseries.FromColumn(name, f.dates, values, timeseries.Price)
}

// Weights derives the constituent weights for the given strategy. All
// solved weight vectors sum to 1.
func (b *PortfolioBuilder) Weights(f *Frame, strategy Strategy) ([]float64, error) {
	switch strategy {
	case FixedWeights:
		if len(f.weights) != len(f.constituents) {
			return nil, fmt.Errorf("%w: %d weights set for %d constituents",
				ErrWeightCountMismatch, len(f.weights), len(f.constituents))
		}
		return f.Weights(), nil
	case EqualWeights:
		n := len(f.constituents)
		weights := make([]float64, n)
		for i := range weights {
			weights[i] = 1.0 / float64(n)
		}
		return weights, nil
	case InverseVolatility:
		return b.inverseVolatility(f)
	case EqualRisk:
		return b.equalRisk(f)
	case MinimumVariance:
		return b.minimumVariance(f)
	default:
		return nil, fmt.Errorf("unknown weight strategy %q", strategy)
	}
}

func (b *PortfolioBuilder) inverseVolatility(f *Frame) ([]float64, error) {
	vols, err := f.Vol(timeseries.Window{})
	if err != nil {
		return nil, err
	}
	weights := make([]float64, len(vols))
	sum := 0.0
	for i, v := range vols {
		if v == 0 {
			return nil, fmt.Errorf("%w: constituent %q", timeseries.ErrZeroVolatility, f.constituents[i].Label())
		}
		weights[i] = 1 / v
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights, nil
}

// covarianceMatrix returns the sample covariance of the per-period column
// returns. Annualization cancels out of every weight solver, so the raw
// per-period covariance is used.
func (f *Frame) covarianceMatrix() *mat.SymDense {
	n := len(f.constituents)
	rets := f.columnReturns()
	rows := len(rets[0])

	data := mat.NewDense(rows, n, nil)
	for j, col := range rets {
		for i, v := range col {
			data.Set(i, j, v)
		}
	}
	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, data, nil)
	return cov
}

// equalRisk solves for equal-risk-contribution weights by cyclical
// coordinate descent on the log-barrier formulation: each pass updates
// one coordinate from the positive root of its first-order condition,
// and the normalized fixed point is the ERC portfolio.
func (b *PortfolioBuilder) equalRisk(f *Frame) ([]float64, error) {
	n := len(f.constituents)
	cov := f.covarianceMatrix()
	budget := 1.0 / float64(n)

	x := make([]float64, n)
	for i := range x {
		v := cov.At(i, i)
		if v <= 0 {
			return nil, fmt.Errorf("%w: constituent %q", ErrZeroVariance, f.constituents[i].Label())
		}
		x[i] = 1 / math.Sqrt(v)
	}

	for iter := 0; iter < b.cfg.ERCMaxIters; iter++ {
		maxDelta := 0.0
		for i := 0; i < n; i++ {
			ci := 0.0
			for j := 0; j < n; j++ {
				if j != i {
					ci += cov.At(i, j) * x[j]
				}
			}
			vii := cov.At(i, i)
			next := (-ci + math.Sqrt(ci*ci+4*vii*budget)) / (2 * vii)
			if d := math.Abs(next - x[i]); d > maxDelta {
				maxDelta = d
			}
			x[i] = next
		}
		if maxDelta < b.cfg.ERCTolerance {
			sum := 0.0
			for _, v := range x {
				sum += v
			}
			weights := make([]float64, n)
			for i, v := range x {
				weights[i] = v / sum
			}
			b.log.Debug().Int("iterations", iter+1).Msg("equal risk contribution converged")
			return weights, nil
		}
	}
	return nil, fmt.Errorf("%w: equal risk contribution after %d iterations",
		ErrNotConverged, b.cfg.ERCMaxIters)
}

// minimumVariance solves min w'Σw subject to Σw = 1. With short sales
// allowed the solution is the closed form Σ⁻¹1 / 1'Σ⁻¹1; without, a
// penalty formulation is minimized with weights clamped to [0, 1].
func (b *PortfolioBuilder) minimumVariance(f *Frame) ([]float64, error) {
	cov := f.covarianceMatrix()

	weights, err := minVarClosedForm(cov)
	if err != nil {
		if b.cfg.AllowShortSales {
			return nil, err
		}
		return b.minVarNoShort(cov)
	}
	if b.cfg.AllowShortSales {
		return weights, nil
	}
	for _, w := range weights {
		if w < 0 {
			return b.minVarNoShort(cov)
		}
	}
	return weights, nil
}

func minVarClosedForm(cov *mat.SymDense) ([]float64, error) {
	n := cov.SymmetricDim()
	ones := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		ones.SetVec(i, 1)
	}

	var solved mat.VecDense
	if err := solved.SolveVec(cov, ones); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularCovariance, err)
	}
	sum := mat.Dot(ones, &solved)
	if sum == 0 {
		return nil, ErrSingularCovariance
	}

	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[i] = solved.AtVec(i) / sum
	}
	return weights, nil
}

// minVarNoShort minimizes w'Σw with a quadratic penalty on the budget
// constraint and weights projected into [0, 1].
func (b *PortfolioBuilder) minVarNoShort(cov *mat.SymDense) ([]float64, error) {
	n := cov.SymmetricDim()
	const penaltyWeight = 1000.0

	project := func(x []float64) []float64 {
		proj := make([]float64, len(x))
		for i, v := range x {
			proj[i] = math.Max(0, math.Min(1, v))
		}
		return proj
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := project(x)
			var variance, sum float64
			for i := 0; i < n; i++ {
				sum += xp[i]
				for j := 0; j < n; j++ {
					variance += xp[i] * xp[j] * cov.At(i, j)
				}
			}
			return variance + penaltyWeight*(sum-1)*(sum-1)
		},
		Grad: func(grad, x []float64) {
			xp := project(x)
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xp[i]
			}
			for i := 0; i < n; i++ {
				grad[i] = 2 * penaltyWeight * (sum - 1)
				for j := 0; j < n; j++ {
					grad[i] += 2 * cov.At(i, j) * xp[j]
				}
			}
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	converged := func(status optimize.Status) bool {
		switch status {
		case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
			return true
		}
		return false
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotConverged, err)
		}
		if !converged(result.Status) {
			return nil, fmt.Errorf("%w: status %v", ErrNotConverged, result.Status)
		}
	}

	weights := project(result.X)
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return nil, ErrNotConverged
	}
	for i := range weights {
		weights[i] /= sum
	}
	b.log.Debug().Floats64("weights", weights).Msg("minimum variance solved without short sales")
	return weights, nil
}

// MakePortfolio is a convenience wrapper building a portfolio with the
// configured engine defaults and their logger.
func (f *Frame) MakePortfolio(name string, strategy Strategy) (*timeseries.Series, error) {
	cfg := config.Load()
	b := NewPortfolioBuilder(cfg, cfg.Logger())
	return b.MakePortfolio(f, name, strategy)
}
