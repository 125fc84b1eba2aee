package queue

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/xerrors"

	"github.com/deploywatch/scanner-qualys/pkg/etc"
	"github.com/deploywatch/scanner-qualys/pkg/job"
)

const scanImagesJobName = "scan_images"

type Enqueuer interface {
	Enqueue(ctx context.Context, request job.ScanRequest) (job.Job, error)
}

type enqueuer struct {
	namespace string
	rdb       *redis.Client
}

func NewEnqueuer(config etc.JobQueue, rdb *redis.Client) Enqueuer {
	return &enqueuer{
		namespace: config.Namespace,
		rdb:       rdb,
	}
}

func (e *enqueuer) Enqueue(ctx context.Context, request job.ScanRequest) (job.Job, error) {
	slog.Debug("Enqueueing scan job", slog.Int("images", len(request.Images)))
	scanJob := job.Job{
		Name: scanImagesJobName,
		ID:   makeIdentifier(),
		Args: job.Args{
			ScanRequest: &request,
		},
	}

	b, err := json.Marshal(scanJob)
	if err != nil {
		return job.Job{}, xerrors.Errorf("marshalling scan request: %v", err)
	}

	// Publish the job to the workers
	if err = e.rdb.Publish(ctx, e.redisJobChannel(), b).Err(); err != nil {
		return job.Job{}, xerrors.Errorf("enqueuing scan images job: %v", err)
	}

	slog.Debug("Successfully enqueued scan job", slog.String("job_id", scanJob.ID))

	return scanJob, nil
}

func (e *enqueuer) redisJobChannel() string {
	return redisJobChannel(e.namespace)
}

func makeIdentifier() string {
	b := make([]byte, 12)
	_, err := io.ReadFull(rand.Reader, b)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", b)
}

func redisJobChannel(namespace string) string {
	return namespace + ":jobs:" + scanImagesJobName
}
