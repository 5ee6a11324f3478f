package domain

import "time"

// ProjectRecord 是保存在数据库中的项目
type ProjectRecord struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Fingerprint string    `json:"fingerprint"`
	Project     *Project  `json:"project"`
	CreatedAt   time.Time `json:"createdAt"`
	Version     int32     `json:"-"`
}

// ProjectMeta 不包含项目文档本身，用于列表
type ProjectMeta struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Fingerprint string    `json:"fingerprint"`
	NumTasks    int       `json:"numTasks"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ScheduleRecord struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"projectID"`
	Strategy  string    `json:"strategy"`
	Seed      int64     `json:"seed"`
	Makespan  TimeStamp `json:"makespan"`
	Genotype  Genotype  `json:"genotype"`
	CreatedAt time.Time `json:"createdAt"`
}
