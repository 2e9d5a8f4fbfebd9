package predictloandefault

import "credit-risk/internal/models"

// Input is the loan application carried in the job variables.
type Input struct {
	Application models.RawInput
}

type Output struct {
	RiskLabel            string  `json:"riskLabel"`
	RiskClass            string  `json:"riskClass"`
	IsDefault            bool    `json:"isDefault"`
	ProbabilityOfDefault float64 `json:"probabilityOfDefault"`
	ProbabilityText      string  `json:"probabilityText"`
	PercentIncome        float64 `json:"percentIncome"`
	ModelName            string  `json:"modelName"`
	ModelVersion         string  `json:"modelVersion"`
	RequestID            string  `json:"requestId"`
	Cached               bool    `json:"cached"`
}
