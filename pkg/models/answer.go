package models

// Chart types the generation step may suggest.
const (
	ChartLine    = "line"
	ChartBar     = "bar"
	ChartArea    = "area"
	ChartScatter = "scatter"
	ChartTable   = "table"
)

// NormalizeChartType maps anything outside the supported set to "table".
func NormalizeChartType(chartType string) string {
	switch chartType {
	case ChartLine, ChartBar, ChartArea, ChartScatter, ChartTable:
		return chartType
	}
	return ChartTable
}

// Answer is the cached result of one question. Context holds the snippets the
// generation call actually saw so a cache hit is self-describing.
type Answer struct {
	Insight   string   `json:"insight"`
	SQL       *string  `json:"sql"`
	ChartType string   `json:"chart_type"`
	Context   []string `json:"context"`
}
