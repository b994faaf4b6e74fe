package frame

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/quantseries/internal/config"
	"github.com/aristath/quantseries/pkg/formulas"
	"github.com/aristath/quantseries/pkg/timeseries"
)

// CaptureKind selects which market regimes a capture ratio compares.
type CaptureKind string

const (
	CaptureUp   CaptureKind = "up"
	CaptureDown CaptureKind = "down"
	CaptureBoth CaptureKind = "both"
)

func (f *Frame) requirePair() error {
	if len(f.constituents) < 2 {
		return fmt.Errorf("%w: need at least 2, have %d", ErrTooFewConstituents, len(f.constituents))
	}
	return nil
}

// Relative appends a relative-performance column: the difference between
// the rebased long and short columns, offset by 1.0 unless baseZero. The
// new constituent is labeled "<long>_over_<short>".
func (f *Frame) Relative(long, short string, baseZero bool) (*timeseries.Series, error) {
	if err := f.requirePair(); err != nil {
		return nil, err
	}
	li, err := f.columnIndex(long)
	if err != nil {
		return nil, err
	}
	si, err := f.columnIndex(short)
	if err != nil {
		return nil, err
	}

	lr := formulas.Rebase(f.columns[li])
	sr := formulas.Rebase(f.columns[si])
	rel := make([]float64, len(f.dates))
	for i := range rel {
		rel[i] = lr[i] - sr[i]
		if !baseZero {
			rel[i] += 1.0
		}
	}

	s, err := timeseries.FromColumn(long+"_over_"+short, f.dates, rel, timeseries.RelativeReturn)
	if err != nil {
		return nil, err
	}
	if err := f.AddSeries(s); err != nil {
		return nil, err
	}
	return s, nil
}

// overlapPair extracts the rows where both columns are observed. Price
// columns are mapped to log-rebased values, so that the regression runs
// on comparable scales; return columns are used as they are.
func (f *Frame) overlapPair(ai, mi int) (x, y []float64) {
	a, m := f.columns[ai], f.columns[mi]
	aIsRet := f.constituents[ai].ValueType() == timeseries.Return
	mIsRet := f.constituents[mi].ValueType() == timeseries.Return

	var aBase, mBase float64
	baseSet := false
	for i := range f.dates {
		av, mv := a[i], m[i]
		if math.IsNaN(av) || math.IsNaN(mv) {
			continue
		}
		if !baseSet {
			aBase, mBase = av, mv
			baseSet = true
		}
		if !aIsRet {
			av = math.Log(av / aBase)
		}
		if !mIsRet {
			mv = math.Log(mv / mBase)
		}
		x = append(x, av)
		y = append(y, mv)
	}
	return x, y
}

// Beta returns the asset's sensitivity to the market column, the ratio of
// their covariance to the market variance over the overlapping rows.
func (f *Frame) Beta(asset, market string) (float64, error) {
	if err := f.requirePair(); err != nil {
		return 0, err
	}
	ai, err := f.columnIndex(asset)
	if err != nil {
		return 0, err
	}
	mi, err := f.columnIndex(market)
	if err != nil {
		return 0, err
	}

	x, y := f.overlapPair(ai, mi)
	mv := formulas.Variance(y)
	if mv == 0 {
		return 0, fmt.Errorf("%w: market column %q", ErrZeroVariance, market)
	}
	return formulas.Covariance(x, y) / mv, nil
}

// JensenAlpha returns the asset's return in excess of what its beta to
// the market explains. Price columns are compared on CAGR (total return
// when the span is under one year), return columns on annualized
// arithmetic return.
func (f *Frame) JensenAlpha(asset, market string, riskfree float64) (float64, error) {
	beta, err := f.Beta(asset, market)
	if err != nil {
		return 0, err
	}
	assetRet, err := f.annualizedColumnRet(asset)
	if err != nil {
		return 0, err
	}
	marketRet, err := f.annualizedColumnRet(market)
	if err != nil {
		return 0, err
	}
	return assetRet - riskfree - beta*(marketRet-riskfree), nil
}

func (f *Frame) annualizedColumnRet(label string) (float64, error) {
	col, err := f.ColumnSeries(label)
	if err != nil {
		return 0, err
	}
	if col.ValueType() == timeseries.Return {
		return col.ArithmeticRet(timeseries.Window{})
	}
	// Under one year of data the CAGR exponent blows small moves up, so
	// the plain total return is used instead.
	if col.YearFrac() < 1 {
		return col.ValueRet(timeseries.Window{})
	}
	return col.GeoRet(timeseries.Window{})
}

// relativeReturns returns the per-period active returns asset minus base
// over the resolved window rows, along with the annualization factor.
func (f *Frame) relativeReturns(asset, base string, w timeseries.Window) ([]float64, float64, error) {
	if err := f.requirePair(); err != nil {
		return nil, 0, err
	}
	ai, err := f.columnIndex(asset)
	if err != nil {
		return nil, 0, err
	}
	bi, err := f.columnIndex(base)
	if err != nil {
		return nil, 0, err
	}
	start, end, err := timeseries.CalcRange(f.dates, w)
	if err != nil {
		return nil, 0, err
	}
	tf := timeseries.TimeFactor(f.dates, w, start, end)

	rets := f.columnReturns()
	rel := make([]float64, 0, end-start)
	for i := start; i < end; i++ {
		rel = append(rel, rets[ai][i]-rets[bi][i])
	}
	return rel, tf, nil
}

// TrackingErrorFunc returns the annualized standard deviation of the
// asset's active return over the base column.
func (f *Frame) TrackingErrorFunc(asset, base string, w timeseries.Window) (float64, error) {
	rel, tf, err := f.relativeReturns(asset, base, w)
	if err != nil {
		return 0, err
	}
	return formulas.StdDev(rel) * math.Sqrt(tf), nil
}

// InfoRatioFunc returns the annualized active return divided by the
// tracking error.
func (f *Frame) InfoRatioFunc(asset, base string, w timeseries.Window) (float64, error) {
	rel, tf, err := f.relativeReturns(asset, base, w)
	if err != nil {
		return 0, err
	}
	te := formulas.StdDev(rel) * math.Sqrt(tf)
	if te == 0 {
		return 0, fmt.Errorf("%w: zero tracking error", ErrZeroVariance)
	}
	return formulas.Mean(rel) * tf / te, nil
}

// CaptureRatioFunc compares the asset's annualized compounded growth with
// the base's over the periods where the base was positive (up), negative
// (down), or the up capture divided by the down capture (both).
func (f *Frame) CaptureRatioFunc(kind CaptureKind, asset, base string, w timeseries.Window) (float64, error) {
	if err := f.requirePair(); err != nil {
		return 0, err
	}
	ai, err := f.columnIndex(asset)
	if err != nil {
		return 0, err
	}
	bi, err := f.columnIndex(base)
	if err != nil {
		return 0, err
	}
	start, end, err := timeseries.CalcRange(f.dates, w)
	if err != nil {
		return 0, err
	}
	tf := timeseries.TimeFactor(f.dates, w, start, end)

	rets := f.columnReturns()
	aRets := rets[ai][start:end]
	bRets := rets[bi][start:end]

	switch kind {
	case CaptureUp:
		return captureRatio(aRets, bRets, tf, func(r float64) bool { return r > 0 })
	case CaptureDown:
		return captureRatio(aRets, bRets, tf, func(r float64) bool { return r < 0 })
	case CaptureBoth:
		up, err := captureRatio(aRets, bRets, tf, func(r float64) bool { return r > 0 })
		if err != nil {
			return 0, err
		}
		down, err := captureRatio(aRets, bRets, tf, func(r float64) bool { return r < 0 })
		if err != nil {
			return 0, err
		}
		if down == 0 {
			return 0, fmt.Errorf("%w: zero down capture", ErrZeroVariance)
		}
		return up / down, nil
	default:
		return 0, fmt.Errorf("unknown capture ratio kind %q", kind)
	}
}

// captureRatio compares the annualized geometric growth of the asset and
// the base over the qualifying periods, raising each compounded product
// to timeFactor/n.
func captureRatio(asset, base []float64, timeFactor float64, match func(float64) bool) (float64, error) {
	aAcc, bAcc := 1.0, 1.0
	n := 0
	for i, b := range base {
		if match(b) {
			aAcc *= 1 + asset[i]
			bAcc *= 1 + b
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no qualifying periods", ErrZeroVariance)
	}
	num := math.Pow(aAcc, timeFactor/float64(n)) - 1
	den := math.Pow(bAcc, timeFactor/float64(n)) - 1
	if den == 0 {
		return 0, fmt.Errorf("%w: reference compounded to zero growth", ErrZeroVariance)
	}
	return num / den, nil
}

// OLSResult holds a fitted ordinary least squares regression of one
// column on another.
type OLSResult struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	Fitted    *timeseries.Series
}

// OrdLeastSquaresFit regresses the y column's values on the x column's
// with an intercept.
func (f *Frame) OrdLeastSquaresFit(y, x string) (*OLSResult, error) {
	if err := f.requirePair(); err != nil {
		return nil, err
	}
	yi, err := f.columnIndex(y)
	if err != nil {
		return nil, err
	}
	xi, err := f.columnIndex(x)
	if err != nil {
		return nil, err
	}

	var xs, ys []float64
	var fittedIndex []time.Time
	for i := range f.dates {
		xv, yv := f.columns[xi][i], f.columns[yi][i]
		if math.IsNaN(xv) || math.IsNaN(yv) {
			continue
		}
		xs = append(xs, xv)
		ys = append(ys, yv)
		fittedIndex = append(fittedIndex, f.dates[i])
	}
	if formulas.Variance(xs) == 0 {
		return nil, fmt.Errorf("%w: regressor column %q", ErrZeroVariance, x)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	rsq := stat.RSquared(xs, ys, nil, intercept, slope)

	fitted := make([]float64, len(xs))
	for i, xv := range xs {
		fitted[i] = intercept + slope*xv
	}
	fs, err := timeseries.FromColumn(y+"_on_"+x, fittedIndex, fitted, f.constituents[yi].ValueType())
	if err != nil {
		return nil, err
	}
	return &OLSResult{Slope: slope, Intercept: intercept, RSquared: rsq, Fitted: fs}, nil
}

// rollingPair produces a rolling statistic over two columns' returns. A
// window of 0 uses the engine default.
func (f *Frame) rollingPair(label1, label2, suffix string, window int, fn func(a, b []float64) float64) (*timeseries.Series, error) {
	if window == 0 {
		window = config.Load().RollingWindow
	}
	if window < 2 {
		return nil, fmt.Errorf("%w: window must be at least 2, got %d", timeseries.ErrInvalidInput, window)
	}
	i1, err := f.columnIndex(label1)
	if err != nil {
		return nil, err
	}
	i2, err := f.columnIndex(label2)
	if err != nil {
		return nil, err
	}
	rets := f.columnReturns()
	r1, r2 := rets[i1], rets[i2]
	if window >= len(r1) {
		return nil, fmt.Errorf("%w: window %d exceeds %d return observations",
			timeseries.ErrInvalidInput, window, len(r1))
	}

	out := make([]float64, 0, len(r1)-window+1)
	for i := window; i <= len(r1); i++ {
		out = append(out, fn(r1[i-window:i], r2[i-window:i]))
	}
	name := fmt.Sprintf("%s_%s_%s_%dd", label1, suffix, label2, window)
	return timeseries.FromColumn(name, f.dates[len(f.dates)-len(out):], out, timeseries.Return)
}

// RollingCorr returns the rolling correlation of two columns' returns.
func (f *Frame) RollingCorr(label1, label2 string, window int) (*timeseries.Series, error) {
	return f.rollingPair(label1, label2, "rolling_corr", window, formulas.Correlation)
}

// RollingBeta returns the asset's rolling beta to the market column.
func (f *Frame) RollingBeta(asset, market string, window int) (*timeseries.Series, error) {
	return f.rollingPair(asset, market, "rolling_beta", window, func(a, b []float64) float64 {
		v := formulas.Variance(b)
		if v == 0 {
			return math.NaN()
		}
		return formulas.Covariance(a, b) / v
	})
}

// RollingInfoRatio returns the rolling annualized information ratio of
// the asset over the base column.
func (f *Frame) RollingInfoRatio(asset, base string, window int) (*timeseries.Series, error) {
	tf := f.PeriodsInAYear()
	return f.rollingPair(asset, base, "rolling_info_ratio", window, func(a, b []float64) float64 {
		rel := make([]float64, len(a))
		for i := range a {
			rel[i] = a[i] - b[i]
		}
		sd := formulas.StdDev(rel)
		if sd == 0 {
			return math.NaN()
		}
		return formulas.Mean(rel) * tf / (sd * math.Sqrt(tf))
	})
}

// EWMARiskOptions parameterizes the exponentially weighted risk
// recursion. Zero values fall back to the configured engine defaults.
type EWMARiskOptions struct {
	Lambda         float64 // decay factor, default from config
	DayChunk       int     // observations seeding the recursion, default from config
	PeriodsInAYear float64 // annualization, default derived from the table
}

// EWMARisk holds the per-date exponentially weighted annualized
// volatilities of two columns and their correlation.
type EWMARisk struct {
	Vol1 *timeseries.Series
	Vol2 *timeseries.Series
	Corr *timeseries.Series
}

// EWMARiskFunc runs the exponentially weighted volatility and correlation
// recursion over two columns. The recursion is seeded with the sample
// statistics of the first DayChunk returns and emits one observation per
// date from the seed point on.
func (f *Frame) EWMARiskFunc(label1, label2 string, opts EWMARiskOptions) (*EWMARisk, error) {
	if err := f.requirePair(); err != nil {
		return nil, err
	}
	i1, err := f.columnIndex(label1)
	if err != nil {
		return nil, err
	}
	i2, err := f.columnIndex(label2)
	if err != nil {
		return nil, err
	}

	cfg := config.Load()
	lambda := opts.Lambda
	if lambda == 0 {
		lambda = cfg.EWMALambda
	}
	chunk := opts.DayChunk
	if chunk == 0 {
		chunk = cfg.EWMADayChunk
	}
	tf := opts.PeriodsInAYear
	if tf == 0 {
		tf = f.PeriodsInAYear()
	}

	rets := f.columnReturns()
	r1, r2 := rets[i1], rets[i2]
	if chunk >= len(r1) {
		return nil, fmt.Errorf("%w: day chunk %d exceeds %d return observations",
			timeseries.ErrInvalidInput, chunk, len(r1))
	}

	vol1 := formulas.StdDev(r1[:chunk]) * math.Sqrt(tf)
	vol2 := formulas.StdDev(r2[:chunk]) * math.Sqrt(tf)
	cov := formulas.Covariance(r1[:chunk], r2[:chunk]) * tf

	n := len(r1) - chunk + 1
	v1s := make([]float64, 0, n)
	v2s := make([]float64, 0, n)
	corrs := make([]float64, 0, n)
	emit := func() {
		v1s = append(v1s, vol1)
		v2s = append(v2s, vol2)
		if vol1 == 0 || vol2 == 0 {
			corrs = append(corrs, math.NaN())
		} else {
			corrs = append(corrs, cov/(vol1*vol2))
		}
	}
	emit()
	for t := chunk; t < len(r1); t++ {
		vol1 = formulas.EWMAVol(r1[t], vol1, tf, lambda)
		vol2 = formulas.EWMAVol(r2[t], vol2, tf, lambda)
		cov = formulas.EWMACov(r1[t], r2[t], cov, tf, lambda)
		emit()
	}

	dates := f.dates[len(f.dates)-n:]
	s1, err := timeseries.FromColumn(label1+"_ewma_vol", dates, v1s, timeseries.Return)
	if err != nil {
		return nil, err
	}
	s2, err := timeseries.FromColumn(label2+"_ewma_vol", dates, v2s, timeseries.Return)
	if err != nil {
		return nil, err
	}
	sc, err := timeseries.FromColumn(label1+"_"+label2+"_ewma_corr", dates, corrs, timeseries.Return)
	if err != nil {
		return nil, err
	}
	return &EWMARisk{Vol1: s1, Vol2: s2, Corr: sc}, nil
}
