package models

import (
	"encoding/json"
	"math"
)

// jsonFloat maps NaN and ±Inf to null.
func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON writes undefined statistics as null.
func (o TestOutcome) MarshalJSON() ([]byte, error) {
	type alias TestOutcome
	return json.Marshal(struct {
		alias
		Statistic *float64 `json:"statistic"`
		PValue    *float64 `json:"p_value"`
	}{
		alias:     alias(o),
		Statistic: jsonFloat(o.Statistic),
		PValue:    jsonFloat(o.PValue),
	})
}

// MarshalJSON writes undefined metrics as null.
func (in Insights) MarshalJSON() ([]byte, error) {
	type alias Insights
	return json.Marshal(struct {
		alias
		StockVolatility *float64 `json:"stock_volatility"`
		IndexVolatility *float64 `json:"index_volatility"`
		AvgStockVolume  *float64 `json:"avg_stock_volume"`
		AvgIndexVolume  *float64 `json:"avg_index_volume"`
		MeanStockChange *float64 `json:"mean_stock_change"`
		MeanIndexChange *float64 `json:"mean_index_change"`
	}{
		alias:           alias(in),
		StockVolatility: jsonFloat(in.StockVolatility),
		IndexVolatility: jsonFloat(in.IndexVolatility),
		AvgStockVolume:  jsonFloat(in.AvgStockVolume),
		AvgIndexVolume:  jsonFloat(in.AvgIndexVolume),
		MeanStockChange: jsonFloat(in.MeanStockChange),
		MeanIndexChange: jsonFloat(in.MeanIndexChange),
	})
}

// MarshalJSON writes averages of tests without a computed value as null.
func (s AnalysisSummary) MarshalJSON() ([]byte, error) {
	type alias AnalysisSummary
	averages := make(map[TestKind]*float64, len(s.Averages))
	for k, v := range s.Averages {
		averages[k] = jsonFloat(v)
	}
	return json.Marshal(struct {
		alias
		Averages map[TestKind]*float64 `json:"averages"`
	}{
		alias:    alias(s),
		Averages: averages,
	})
}
