package frame

import (
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/quantseries/pkg/formulas"
	"github.com/aristath/quantseries/pkg/timeseries"
)

// eachColumn evaluates one statistic on every aligned column, in column
// order. The statistics live on Series; each column is viewed as one.
func (f *Frame) eachColumn(fn func(*timeseries.Series) (float64, error)) ([]float64, error) {
	out := make([]float64, len(f.constituents))
	for i := range f.constituents {
		col, err := f.columnSeries(i)
		if err != nil {
			return nil, err
		}
		v, err := fn(col)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ValueRet returns each column's simple return over the window.
func (f *Frame) ValueRet(w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.ValueRet(w) })
}

// GeoRet returns each column's compound annual growth rate.
func (f *Frame) GeoRet(w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.GeoRet(w) })
}

// ArithmeticRet returns each column's annualized arithmetic return.
func (f *Frame) ArithmeticRet(w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.ArithmeticRet(w) })
}

// Vol returns each column's annualized volatility.
func (f *Frame) Vol(w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.Vol(w) })
}

// DownsideDeviation returns each column's annualized downside deviation.
func (f *Frame) DownsideDeviation(minAcceptedReturn float64, w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) {
		return s.DownsideDeviation(minAcceptedReturn, w)
	})
}

// RetVolRatio returns each column's Sharpe ratio.
func (f *Frame) RetVolRatio(riskfree float64, w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.RetVolRatio(riskfree, w) })
}

// SortinoRatio returns each column's Sortino ratio.
func (f *Frame) SortinoRatio(riskfree float64, w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.SortinoRatio(riskfree, w) })
}

// VaRDown returns each column's historical downside VaR.
func (f *Frame) VaRDown(level float64, interp formulas.QuantileInterp, w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.VaRDown(level, interp, w) })
}

// CVaRDown returns each column's conditional downside VaR.
func (f *Frame) CVaRDown(level float64, w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.CVaRDown(level, w) })
}

// VolFromVaR returns each column's VaR-implied volatility.
func (f *Frame) VolFromVaR(level float64, interp formulas.QuantileInterp, w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.VolFromVaR(level, interp, w) })
}

// Skew returns each column's return skewness.
func (f *Frame) Skew(w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.Skew(w) })
}

// Kurtosis returns each column's excess kurtosis.
func (f *Frame) Kurtosis(w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.Kurtosis(w) })
}

// ZScore returns each column's latest-return z-score.
func (f *Frame) ZScore(w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.ZScore(w) })
}

// Worst returns each column's worst single-period return.
func (f *Frame) Worst(w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.Worst(w) })
}

// WorstMonth returns each column's worst calendar-month return.
func (f *Frame) WorstMonth() ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.WorstMonth() })
}

// PositiveShare returns each column's share of positive returns.
func (f *Frame) PositiveShare(w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.PositiveShare(w) })
}

// MaxDrawdown returns each column's deepest drawdown.
func (f *Frame) MaxDrawdown(w timeseries.Window) ([]float64, error) {
	return f.eachColumn(func(s *timeseries.Series) (float64, error) { return s.MaxDrawdown(w) })
}

// MaxDrawdownDate returns the date of each column's deepest drawdown.
func (f *Frame) MaxDrawdownDate() ([]time.Time, error) {
	out := make([]time.Time, len(f.constituents))
	for i := range f.constituents {
		col, err := f.columnSeries(i)
		if err != nil {
			return nil, err
		}
		out[i] = col.MaxDrawdownDate()
	}
	return out, nil
}

// DrawdownDetails reports each column's deepest drawdown episode.
func (f *Frame) DrawdownDetails() ([]formulas.DrawdownDetails, error) {
	out := make([]formulas.DrawdownDetails, len(f.constituents))
	for i := range f.constituents {
		col, err := f.columnSeries(i)
		if err != nil {
			return nil, err
		}
		out[i] = col.DrawdownDetails()
	}
	return out, nil
}

// ColumnProperties is one constituent's full point-statistics snapshot.
type ColumnProperties struct {
	Label      string
	Properties []timeseries.Property
}

// AllProperties returns every constituent's point-statistics snapshot,
// one row per constituent, one entry per statistic.
func (f *Frame) AllProperties() ([]ColumnProperties, error) {
	out := make([]ColumnProperties, len(f.constituents))
	for i, c := range f.constituents {
		col, err := f.columnSeries(i)
		if err != nil {
			return nil, err
		}
		out[i] = ColumnProperties{Label: c.Label(), Properties: col.AllProperties()}
	}
	return out, nil
}

// CorrelMatrix returns the correlation matrix of per-period column
// returns, ordered like Labels.
func (f *Frame) CorrelMatrix() [][]float64 {
	n := len(f.constituents)
	rets := f.columnReturns()
	rows := len(rets[0])

	data := mat.NewDense(rows, n, nil)
	for j, col := range rets {
		for i, v := range col {
			data.Set(i, j, v)
		}
	}
	corr := mat.NewSymDense(n, nil)
	stat.CorrelationMatrix(corr, data, nil)

	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = corr.At(i, j)
		}
	}
	return out
}

// columnReturns materializes per-period simple returns for every aligned
// column, zero-filling gaps so all columns share one row count.
func (f *Frame) columnReturns() [][]float64 {
	out := make([][]float64, len(f.constituents))
	for i, c := range f.constituents {
		col := f.columns[i]
		if c.ValueType() == timeseries.Return {
			out[i] = formulas.ZeroFill(col[1:])
		} else {
			out[i] = formulas.ZeroFill(formulas.Returns(col)[1:])
		}
	}
	return out
}

// RollingReturn returns one column's rolling return sum series.
func (f *Frame) RollingReturn(label string, window int) (*timeseries.Series, error) {
	col, err := f.ColumnSeries(label)
	if err != nil {
		return nil, err
	}
	return col.RollingReturn(window)
}

// RollingVol returns one column's rolling annualized volatility series.
func (f *Frame) RollingVol(label string, window int, periodsInAYear float64) (*timeseries.Series, error) {
	col, err := f.ColumnSeries(label)
	if err != nil {
		return nil, err
	}
	return col.RollingVol(window, periodsInAYear)
}

// RollingVaRDown returns one column's rolling downside VaR series.
func (f *Frame) RollingVaRDown(label string, window int, level float64) (*timeseries.Series, error) {
	col, err := f.ColumnSeries(label)
	if err != nil {
		return nil, err
	}
	return col.RollingVaRDown(window, level)
}

// RollingCVaRDown returns one column's rolling conditional VaR series.
func (f *Frame) RollingCVaRDown(label string, window int, level float64) (*timeseries.Series, error) {
	col, err := f.ColumnSeries(label)
	if err != nil {
		return nil, err
	}
	return col.RollingCVaRDown(window, level)
}
