package domain

const (
	EmailQueue = "email_queue"

	MailTypeEvolutionFinished = "evolution_finished"
	MailTypeEvolutionFailed   = "evolution_failed"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type EvolutionFinishedMailData struct {
	JobID       string    `json:"jobID"`
	ProjectName string    `json:"projectName"`
	Makespan    TimeStamp `json:"makespan"`
	LowerBound  TimeStamp `json:"lowerBound"`
	Generations int       `json:"generations"`
	ScheduleID  int64     `json:"scheduleID"`
}

type EvolutionFailedMailData struct {
	JobID        string `json:"jobID"`
	ProjectName  string `json:"projectName"`
	ErrorMessage string `json:"errorMessage"`
}
