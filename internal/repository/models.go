package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/sortbench/pkg/model"
)

// BenchmarkJob represents the bench_jobs table.
type BenchmarkJob struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	JID        string          `gorm:"column:jid;type:varchar(64);uniqueIndex"`
	Type       model.JobType   `gorm:"column:type"`
	Status     model.JobStatus `gorm:"column:status"`
	RunStatus  model.RunStatus `gorm:"column:run_status"`
	StatusInfo string          `gorm:"column:status_info;type:text"`
	ResultFile string          `gorm:"column:result_file;type:varchar(512)"`
	UserName   string          `gorm:"column:user_name;type:varchar(128)"`
	COSBucket  string          `gorm:"column:cos_bucket;type:varchar(128)"`
	Params     JSONField       `gorm:"column:params;type:json"`
	CreateTime time.Time       `gorm:"column:create_time;autoCreateTime"`
	BeginTime  *time.Time      `gorm:"column:begin_time"`
	EndTime    *time.Time      `gorm:"column:end_time"`
}

// TableName returns the table name for BenchmarkJob.
func (BenchmarkJob) TableName() string {
	return "bench_jobs"
}

// ToModel converts BenchmarkJob to model.Job.
func (j *BenchmarkJob) ToModel() *model.Job {
	job := &model.Job{
		ID:         j.ID,
		JobUUID:    j.JID,
		Type:       j.Type,
		Status:     j.Status,
		RunStatus:  j.RunStatus,
		StatusInfo: j.StatusInfo,
		ResultFile: j.ResultFile,
		UserName:   j.UserName,
		COSBucket:  j.COSBucket,
		CreateTime: j.CreateTime,
		BeginTime:  j.BeginTime,
		EndTime:    j.EndTime,
	}

	if j.Params != nil {
		_ = json.Unmarshal(j.Params, &job.Params)
	}

	return job
}

// JobFromModel converts model.Job to a BenchmarkJob record.
func JobFromModel(job *model.Job) (*BenchmarkJob, error) {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return nil, err
	}

	return &BenchmarkJob{
		ID:         job.ID,
		JID:        job.JobUUID,
		Type:       job.Type,
		Status:     job.Status,
		RunStatus:  job.RunStatus,
		StatusInfo: job.StatusInfo,
		ResultFile: job.ResultFile,
		UserName:   job.UserName,
		COSBucket:  job.COSBucket,
		Params:     params,
		CreateTime: job.CreateTime,
		BeginTime:  job.BeginTime,
		EndTime:    job.EndTime,
	}, nil
}

// BenchmarkRun represents the bench_runs table.
type BenchmarkRun struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	RID         string     `gorm:"column:rid;type:varchar(64);uniqueIndex"`
	JID         string     `gorm:"column:jid;type:varchar(64);index"`
	Machine     JSONField  `gorm:"column:machine;type:json"`
	Result      JSONField  `gorm:"column:result;type:json"`
	Version     string     `gorm:"column:version;type:varchar(32)"`
	TotalTrials int64      `gorm:"column:total_trials"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

// TableName returns the table name for BenchmarkRun.
func (BenchmarkRun) TableName() string {
	return "bench_runs"
}

// ToModel converts BenchmarkRun to model.RunResult.
func (r *BenchmarkRun) ToModel() (*model.RunResult, error) {
	res := &model.RunResult{
		RunUUID:     r.RID,
		JobUUID:     r.JID,
		Version:     r.Version,
		TotalTrials: r.TotalTrials,
	}
	if r.CompletedAt != nil {
		res.CompletedAt = *r.CompletedAt
	}

	if r.Machine != nil {
		if err := json.Unmarshal(r.Machine, &res.Machine); err != nil {
			return nil, err
		}
	}

	if r.Result != nil {
		if err := json.Unmarshal(r.Result, &res.Result); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// TrialRecord represents the bench_trials table.
type TrialRecord struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RID           string    `gorm:"column:rid;type:varchar(64);index"`
	CaseName      string    `gorm:"column:case_name;type:varchar(128)"`
	Strategy      string    `gorm:"column:strategy;type:varchar(64)"`
	Trial         int       `gorm:"column:trial"`
	WallTimeNs    int64     `gorm:"column:wall_time_ns"`
	AllocBytes    int64     `gorm:"column:alloc_bytes"`
	Allocs        int64     `gorm:"column:allocs"`
	GoroutinePeak int       `gorm:"column:goroutine_peak"`
	Verified      bool      `gorm:"column:verified"`
	Error         string    `gorm:"column:error;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for TrialRecord.
func (TrialRecord) TableName() string {
	return "bench_trials"
}

// ToModel converts TrialRecord to model.TrialResult.
func (t *TrialRecord) ToModel() model.TrialResult {
	return model.TrialResult{
		Case:          t.CaseName,
		Strategy:      t.Strategy,
		Trial:         t.Trial,
		WallTime:      time.Duration(t.WallTimeNs),
		AllocBytes:    t.AllocBytes,
		Allocs:        t.Allocs,
		GoroutinePeak: t.GoroutinePeak,
		Verified:      t.Verified,
		Err:           t.Error,
	}
}

// TrialFromModel converts model.TrialResult to a TrialRecord.
func TrialFromModel(rid string, tr model.TrialResult) *TrialRecord {
	return &TrialRecord{
		RID:           rid,
		CaseName:      tr.Case,
		Strategy:      tr.Strategy,
		Trial:         tr.Trial,
		WallTimeNs:    tr.WallTime.Nanoseconds(),
		AllocBytes:    tr.AllocBytes,
		Allocs:        tr.Allocs,
		GoroutinePeak: tr.GoroutinePeak,
		Verified:      tr.Verified,
		Error:         tr.Err,
	}
}

// FindingRecord represents the bench_findings table.
type FindingRecord struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RID       string    `gorm:"column:rid;type:varchar(64);index"`
	Strategy  string    `gorm:"column:strategy;type:varchar(64)"`
	Type      string    `gorm:"column:type;type:varchar(64)"`
	Severity  string    `gorm:"column:severity;type:varchar(16)"`
	Message   string    `gorm:"column:message;type:text"`
	CaseName  string    `gorm:"column:case_name;type:varchar(128)"`
	Details   JSONField `gorm:"column:details;type:json"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for FindingRecord.
func (FindingRecord) TableName() string {
	return "bench_findings"
}

// ToModel converts FindingRecord to model.Finding.
func (f *FindingRecord) ToModel() model.Finding {
	return model.Finding{
		ID:        f.ID,
		RunUUID:   f.RID,
		Strategy:  f.Strategy,
		Type:      f.Type,
		Severity:  f.Severity,
		Message:   f.Message,
		CaseName:  f.CaseName,
		Details:   json.RawMessage(f.Details),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// FindingRuleRecord represents the bench_finding_rules table.
type FindingRuleRecord struct {
	ID         int64   `gorm:"column:id;primaryKey;autoIncrement"`
	Type       string  `gorm:"column:type;type:varchar(64)"`
	Operation  string  `gorm:"column:operation;type:varchar(64)"`
	Target     string  `gorm:"column:target;type:varchar(512)"`
	TargetType string  `gorm:"column:target_type;type:varchar(64)"`
	Threshold  float64 `gorm:"column:threshold"`
	Message    string  `gorm:"column:message;type:text"`
	Deleted    *int64  `gorm:"column:deleted"`
}

// TableName returns the table name for FindingRuleRecord.
func (FindingRuleRecord) TableName() string {
	return "bench_finding_rules"
}

// ToModel converts FindingRuleRecord to model.FindingRule.
func (r *FindingRuleRecord) ToModel() model.FindingRule {
	return model.FindingRule{
		ID:         r.ID,
		Type:       r.Type,
		Operation:  r.Operation,
		Target:     r.Target,
		TargetType: r.TargetType,
		Threshold:  r.Threshold,
		Message:    r.Message,
	}
}

// JSONField is a custom type for handling JSON columns in GORM.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// MarshalJSON implements json.Marshaler interface.
func (j JSONField) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (j *JSONField) UnmarshalJSON(data []byte) error {
	if data == nil || string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}
