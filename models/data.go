package models

// DataQuery selects the scenario served by the data endpoint.
type DataQuery struct {
	Value int `query:"value" validate:"between=0 3"`
}

type HealthStatus string

const (
	Healthy   HealthStatus = "Healthy"
	Degraded  HealthStatus = "Degraded"
	Unhealthy HealthStatus = "Unhealthy"
)

type HealthCheckResult struct {
	Name        string         `json:"name"`
	Status      HealthStatus   `json:"status"`
	Description string         `json:"description,omitempty"`
	Duration    string         `json:"duration"`
	Data        map[string]any `json:"data,omitempty"`
}

type HealthReport struct {
	Status        HealthStatus        `json:"status"`
	TotalDuration string              `json:"totalDuration"`
	Entries       []HealthCheckResult `json:"entries"`
}
