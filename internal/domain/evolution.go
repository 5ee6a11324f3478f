package domain

import "time"

type EvolutionStatus string

const (
	EvolutionStatusPending   EvolutionStatus = "pending"
	EvolutionStatusRunning   EvolutionStatus = "running"
	EvolutionStatusCompleted EvolutionStatus = "completed"
	EvolutionStatusFailed    EvolutionStatus = "failed"
)

// EvolutionParameters 遗传算法参数
type EvolutionParameters struct {
	PopulationSize int     `json:"populationSize" validate:"required,min=2"`
	MaxGenerations int     `json:"maxGenerations" validate:"required,min=1"`
	CrossoverRate  float64 `json:"crossoverRate" validate:"min=0,max=1"`
	MutationRate   float64 `json:"mutationRate" validate:"min=0,max=1"`
	EliteCount     int     `json:"eliteCount" validate:"min=0,ltfield=PopulationSize"`
	TournamentSize int     `json:"tournamentSize" validate:"required,min=1"`
	Parallelism    int     `json:"parallelism" validate:"min=0"` // 0 表示使用 GOMAXPROCS
	Strategy       string  `json:"strategy" validate:"omitempty,oneof=random shortest"`
	Seed           int64   `json:"seed"`
}

type EvolutionJob struct {
	ID             string              `json:"id"`
	ProjectID      int64               `json:"projectID"`
	Parameters     EvolutionParameters `json:"parameters"`
	Status         EvolutionStatus     `json:"status"`
	BestScheduleID *int64              `json:"bestScheduleID"`
	BestMakespan   *TimeStamp          `json:"bestMakespan"`
	Generations    int                 `json:"generations"`
	NotifyEmail    string              `json:"notifyEmail,omitempty"`
	ErrorMessage   string              `json:"errorMessage,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	FinishedAt     *time.Time          `json:"finishedAt"`
	Version        int32               `json:"-"`
}

const EvolutionQueue = "evolution_queue"

// EvolutionMessage 是投递到 evolution_queue 的消息
type EvolutionMessage struct {
	JobID string `json:"jobID"`
}
