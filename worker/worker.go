package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// IJob job的接口
type IJob interface {
	Start() error
	Run()
	Stop() error
}

type OnWork func() error

type BaseJob struct {
	Cron      *cron.Cron
	IsRunning bool
	OnWork    OnWork

	mu sync.Mutex
}

// Schedule run the job every interval in location
func (job *BaseJob) Schedule(location string, interval time.Duration) error {
	l, err := time.LoadLocation(location)
	if err != nil {
		return err
	}

	job.Cron = cron.New(cron.WithLocation(l))
	_, err = job.Cron.AddFunc(fmt.Sprintf("@every %s", interval), job.Run)
	return err
}

func (job *BaseJob) Start() error {
	job.Cron.Start()
	return nil
}

func (job *BaseJob) Stop() error {
	<-job.Cron.Stop().Done()
	return nil
}

// Run skip the tick if the previous one is still running
func (job *BaseJob) Run() {
	job.mu.Lock()
	if job.IsRunning {
		job.mu.Unlock()
		return
	}

	job.IsRunning = true
	job.mu.Unlock()

	_ = job.OnWork()

	job.mu.Lock()
	job.IsRunning = false
	job.mu.Unlock()
}

// Serve start jobs and stop them once ctx is done
func Serve(ctx context.Context, jobs ...IJob) error {
	for _, job := range jobs {
		if err := job.Start(); err != nil {
			return err
		}
	}

	<-ctx.Done()

	for _, job := range jobs {
		_ = job.Stop()
	}

	return nil
}
