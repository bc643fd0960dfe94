package kpi

import (
	"github.com/ruslano69/surveydash/pkg/core/dataset"
)

// Config - имена вопросов для карточек дашборда (секция kpis в YAML)
type Config struct {
	AgeColumn         string `yaml:"age_column"`
	DeliveriesColumn  string `yaml:"deliveries_column"`
	SuccessRateColumn string `yaml:"success_rate_column"`
	FixedPayColumn    string `yaml:"fixed_pay_column"`
	CompanyColumn     string `yaml:"company_column"`
}

// DefaultConfig возвращает имена вопросов анкеты водителей фургонов
func DefaultConfig() Config {
	return Config{
		AgeColumn:         "Age (Years)",
		DeliveriesColumn:  "Average number of deliveries per day: ______",
		SuccessRateColumn: "Approximate delivery success rate (orders deliv...",
		FixedPayColumn:    "Please mention your Fixed Monthly Pay (if any):...",
		CompanyColumn:     "Company",
	}
}

// Metric - среднее по вопросу и число ответивших
type Metric struct {
	Value       float64 `json:"value"`
	Respondents int     `json:"respondents"`
}

// Cards - карточки KPI дашборда для текущей выборки
type Cards struct {
	TotalResponses    int     `json:"total_responses"`
	OfTotal           int     `json:"of_total"`
	FilteredPercent   float64 `json:"filtered_percent"`
	AverageAge        *Metric `json:"average_age,omitempty"`
	AverageDeliveries *Metric `json:"average_deliveries,omitempty"`
	SuccessRate       *Metric `json:"success_rate,omitempty"`
	FixedMonthlyPay   *Metric `json:"fixed_monthly_pay,omitempty"`
	UniqueCompanies   int     `json:"unique_companies"`
	TopCompany        string  `json:"top_company"`
	AnsweredCells     int     `json:"answered_cells"`
	Questions         int     `json:"questions"`
}

// Dashboard считает карточки KPI.
// Метрика отсутствует, если вопроса нет в таблице или по нему нет числовых ответов.
func Dashboard(v *dataset.View, cfg Config) Cards {
	t := v.Table()

	c := Cards{
		TotalResponses:  v.Len(),
		OfTotal:         t.Len(),
		FilteredPercent: percent(v.Len(), t.Len()),
		TopCompany:      "N/A",
		Questions:       t.Width(),
	}

	c.AverageAge = columnMean(v, cfg.AgeColumn)
	c.AverageDeliveries = columnMean(v, cfg.DeliveriesColumn)
	c.SuccessRate = columnMean(v, cfg.SuccessRateColumn)
	c.FixedMonthlyPay = columnMean(v, cfg.FixedPayColumn)

	if col, ok := t.Schema().Lookup(cfg.CompanyColumn); ok {
		counts := make(map[string]int)
		var order []string
		for pos := 0; pos < v.Len(); pos++ {
			val := v.Value(pos, col.Index)
			if val.IsBlank() {
				continue
			}
			name := val.Text()
			if counts[name] == 0 {
				order = append(order, name)
			}
			counts[name]++
		}
		c.UniqueCompanies = len(counts)

		// мода; при равенстве побеждает наименьшее значение
		topCount := 0
		for _, name := range order {
			n := counts[name]
			if n > topCount || (n == topCount && name < c.TopCompany) {
				c.TopCompany, topCount = name, n
			}
		}
	}

	for pos := 0; pos < v.Len(); pos++ {
		for col := 0; col < t.Width(); col++ {
			if !v.Value(pos, col).IsBlank() {
				c.AnsweredCells++
			}
		}
	}

	return c
}

func columnMean(v *dataset.View, question string) *Metric {
	if question == "" {
		return nil
	}
	col, ok := v.Table().Schema().Lookup(question)
	if !ok {
		return nil
	}
	m, n := mean(v, allPositions(v.Len()), col.Index)
	if m == nil {
		return nil
	}
	return &Metric{Value: *m, Respondents: n}
}
