package catalog

import "github.com/biomarker-recon-server/internal/domain"

// DefaultEntries returns the built-in benchmark catalog. Conversion
// factors map an aliased unit onto the canonical unit by multiplication.
// User overrides shadow these rows by canonical name.
func DefaultEntries() []domain.BenchmarkEntry {
	return []domain.BenchmarkEntry{
		{
			CanonicalName: "Glucose",
			AliasNames:    []string{"Blood Glucose", "Fasting Glucose", "Glucose Fasting", "GLU"},
			MaleRange:     "3.9-5.6 mmol/L (70-100 mg/dL)",
			FemaleRange:   "3.9-5.6 mmol/L (70-100 mg/dL)",
			CanonicalUnit: "mmol/L",
			UnitAliases:   map[string]float64{"mg/dL": 0.0555},
		},
		{
			CanonicalName: "HbA1c",
			AliasNames:    []string{"Hemoglobin A1c", "Glycated Hemoglobin", "A1c"},
			MaleRange:     "<5.7 %",
			FemaleRange:   "<5.7 %",
			CanonicalUnit: "%",
		},
		{
			CanonicalName: "Total Cholesterol",
			AliasNames:    []string{"Cholesterol", "Cholesterol Total", "TC"},
			MaleRange:     "<5.2 mmol/L (<200 mg/dL)",
			FemaleRange:   "<5.2 mmol/L (<200 mg/dL)",
			CanonicalUnit: "mmol/L",
			UnitAliases:   map[string]float64{"mg/dL": 0.0259},
		},
		{
			CanonicalName: "LDL Cholesterol",
			AliasNames:    []string{"LDL", "LDL-C", "Low Density Lipoprotein"},
			MaleRange:     "<3.4 mmol/L (<130 mg/dL)",
			FemaleRange:   "<3.4 mmol/L (<130 mg/dL)",
			CanonicalUnit: "mmol/L",
			UnitAliases:   map[string]float64{"mg/dL": 0.0259},
		},
		{
			CanonicalName: "HDL Cholesterol",
			AliasNames:    []string{"HDL", "HDL-C", "High Density Lipoprotein"},
			MaleRange:     "≥1.0 mmol/L (≥40 mg/dL)",
			FemaleRange:   "≥1.3 mmol/L (≥50 mg/dL)",
			CanonicalUnit: "mmol/L",
			UnitAliases:   map[string]float64{"mg/dL": 0.0259},
		},
		{
			CanonicalName: "Triglycerides",
			AliasNames:    []string{"TRIG", "TG"},
			MaleRange:     "<1.7 mmol/L (<150 mg/dL)",
			FemaleRange:   "<1.7 mmol/L (<150 mg/dL)",
			CanonicalUnit: "mmol/L",
			UnitAliases:   map[string]float64{"mg/dL": 0.0113},
		},
		{
			CanonicalName: "Creatinine",
			AliasNames:    []string{"Serum Creatinine", "CREA"},
			MaleRange:     "0.74-1.35 mg/dL (65-119 µmol/L)",
			FemaleRange:   "0.59-1.04 mg/dL (52-92 µmol/L)",
			CanonicalUnit: "mg/dL",
			UnitAliases:   map[string]float64{"µmol/L": 0.0113},
		},
		{
			CanonicalName: "Vitamin D",
			AliasNames:    []string{"25-OH Vitamin D", "25-Hydroxyvitamin D", "Vitamin D3", "Vitamin D 25-OH"},
			MaleRange:     "30-100 ng/mL",
			FemaleRange:   "30-100 ng/mL",
			CanonicalUnit: "ng/mL",
			UnitAliases:   map[string]float64{"nmol/L": 0.4},
		},
		{
			CanonicalName: "Vitamin B12",
			AliasNames:    []string{"Cobalamin", "B12"},
			MaleRange:     "187-883 pg/mL",
			FemaleRange:   "187-883 pg/mL",
			CanonicalUnit: "pg/mL",
			UnitAliases:   map[string]float64{"pmol/L": 1.355},
		},
		{
			CanonicalName: "TSH",
			AliasNames:    []string{"Thyroid Stimulating Hormone", "Thyrotropin"},
			MaleRange:     "0.4-4.0 mIU/L",
			FemaleRange:   "0.4-4.0 mIU/L",
			CanonicalUnit: "mIU/L",
			UnitAliases:   map[string]float64{"µIU/mL": 1},
		},
		{
			CanonicalName: "Free T4",
			AliasNames:    []string{"FT4", "Free Thyroxine"},
			MaleRange:     "12-22 pmol/L",
			FemaleRange:   "12-22 pmol/L",
			CanonicalUnit: "pmol/L",
			UnitAliases:   map[string]float64{"ng/dL": 12.87},
		},
		{
			CanonicalName: "Ferritin",
			AliasNames:    []string{"Serum Ferritin"},
			MaleRange:     "30-400 µg/L",
			FemaleRange:   "13-150 µg/L",
			CanonicalUnit: "µg/L",
			UnitAliases:   map[string]float64{"ng/mL": 1},
		},
		{
			CanonicalName: "Hemoglobin",
			AliasNames:    []string{"HGB", "Hb"},
			MaleRange:     "13.5-17.5 g/dL",
			FemaleRange:   "12.0-15.5 g/dL",
			CanonicalUnit: "g/dL",
			UnitAliases:   map[string]float64{"g/L": 0.1},
		},
		{
			CanonicalName: "ALT",
			AliasNames:    []string{"Alanine Aminotransferase", "SGPT"},
			MaleRange:     "≤41 U/L",
			FemaleRange:   "≤33 U/L",
			CanonicalUnit: "U/L",
		},
		{
			CanonicalName: "AST",
			AliasNames:    []string{"Aspartate Aminotransferase", "SGOT"},
			MaleRange:     "≤40 U/L",
			FemaleRange:   "≤32 U/L",
			CanonicalUnit: "U/L",
		},
		{
			CanonicalName: "CRP",
			AliasNames:    []string{"C-Reactive Protein"},
			MaleRange:     "<5 mg/L",
			FemaleRange:   "<5 mg/L",
			CanonicalUnit: "mg/L",
		},
	}
}
