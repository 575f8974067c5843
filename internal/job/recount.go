// 文件路径: internal/job/recount.go
// 模块说明: 定时校正表单的 num_of_submissions 冗余计数。
package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/creamcroissant/formboard/internal/service"
)

// SubmissionCountJob reconciles each form's cached submission count with its rows.
// Forms whose count changes get a new date_modified, which invalidates their ETags.
type SubmissionCountJob struct {
	Forms  service.FormService
	Logger *slog.Logger
}

// NewSubmissionCountJob 组装计数校正任务。
func NewSubmissionCountJob(forms service.FormService, logger *slog.Logger) *SubmissionCountJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionCountJob{Forms: forms, Logger: logger}
}

// Name 返回任务标识。
func (j *SubmissionCountJob) Name() string {
	return "submission_recount"
}

// Run 执行一次校正。
func (j *SubmissionCountJob) Run(ctx context.Context) error {
	if j.Forms == nil {
		return fmt.Errorf("submission recount: form service is required / 缺少表单服务")
	}
	updated, err := j.Forms.RecountSubmissions(ctx)
	if err != nil {
		return fmt.Errorf("submission recount: %w", err)
	}
	if updated > 0 {
		j.Logger.Info("submission counts corrected", "forms", updated)
	}
	return nil
}
