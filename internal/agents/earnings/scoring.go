package earnings

import "stock-recommender/internal/types"

// StrongScore is the fundamental score at which a stock is reported as strong.
const StrongScore = 6.0

// FundamentalsOf copies the ratios out of info and scores them.
func FundamentalsOf(info types.CompanyInfo) types.Fundamentals {
	f := types.Fundamentals{
		PERatio:       info.TrailingPE,
		PEGRatio:      info.PEGRatio,
		PriceToBook:   info.PriceToBook,
		DebtToEquity:  info.DebtToEquity,
		ROE:           info.ReturnOnEquity,
		ProfitMargin:  info.ProfitMargins,
		RevenueGrowth: info.RevenueGrowth,
	}
	f.FundamentalScore = Score(f)
	return f
}

// Score rates valuation, profitability, growth and leverage. Missing or zero
// ratios earn nothing.
func Score(f types.Fundamentals) float64 {
	score := 0.0

	if pe, ok := present(f.PERatio); ok {
		switch {
		case pe > 10 && pe < 25:
			score += 2
		case pe > 5 && pe <= 10:
			score++
		}
	}
	if peg, ok := present(f.PEGRatio); ok {
		switch {
		case peg < 1:
			score += 2
		case peg < 1.5:
			score++
		}
	}
	score += tiered(f.ROE, 0.15, 0.10)
	score += tiered(f.ProfitMargin, 0.15, 0.10)
	score += tiered(f.RevenueGrowth, 0.10, 0.05)
	if de, ok := present(f.DebtToEquity); ok {
		switch {
		case de < 0.3:
			score++
		case de < 0.5:
			score += 0.5
		}
	}
	return score
}

// Highlights lists the human readable strengths behind a score.
func Highlights(f types.Fundamentals) []string {
	var out []string
	if pe, ok := present(f.PERatio); ok && pe > 0 && pe < 15 {
		out = append(out, "Low P/E ratio")
	}
	if peg, ok := present(f.PEGRatio); ok && peg < 1 {
		out = append(out, "PEG ratio < 1")
	}
	if roe, ok := present(f.ROE); ok && roe > 0.15 {
		out = append(out, "High ROE")
	}
	if m, ok := present(f.ProfitMargin); ok && m > 0.15 {
		out = append(out, "High profit margins")
	}
	if g, ok := present(f.RevenueGrowth); ok && g > 0.10 {
		out = append(out, "Strong revenue growth")
	}
	if de, ok := present(f.DebtToEquity); ok && de < 0.3 {
		out = append(out, "Low debt-to-equity")
	}
	return out
}

// Upside is the percent distance from price to target. ok is false without both values.
func Upside(info types.CompanyInfo) (float64, bool) {
	if info.TargetMeanPrice == nil || *info.TargetMeanPrice == 0 || info.CurrentPrice <= 0 {
		return 0, false
	}
	return (*info.TargetMeanPrice - info.CurrentPrice) / info.CurrentPrice * 100, true
}

func tiered(v *float64, high, low float64) float64 {
	x, ok := present(v)
	switch {
	case !ok:
		return 0
	case x > high:
		return 2
	case x > low:
		return 1
	default:
		return 0
	}
}

func present(v *float64) (float64, bool) {
	if v == nil || *v == 0 {
		return 0, false
	}
	return *v, true
}
