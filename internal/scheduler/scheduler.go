package scheduler

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RetrainFunc runs one full retraining pass over the listing store.
type RetrainFunc func() error

// Scheduler triggers a nightly retrain at a configured hour. Runs are
// serialized with a mutex so an overlapping trigger waits instead of
// training twice.
type Scheduler struct {
	retrain     RetrainFunc
	retrainHour int
	logger      *logrus.Logger
	stopChan    chan struct{}
	wg          sync.WaitGroup
	jobMutex    sync.Mutex
	lastRunDay  int
}

func NewScheduler(retrain RetrainFunc, retrainHour int, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		retrain:     retrain,
		retrainHour: retrainHour,
		logger:      logger,
		stopChan:    make(chan struct{}),
		lastRunDay:  -1,
	}
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

// Stop signals the scheduler to stop and waits for it to finish
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.executeScheduledJobs(t)
		}
	}
}

func (s *Scheduler) executeScheduledJobs(t time.Time) {
	if t.Hour() != s.retrainHour {
		return
	}
	// One run per day, even though the hour matches for sixty ticks.
	if t.YearDay() == s.lastRunDay {
		return
	}

	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	s.logger.WithFields(logrus.Fields{
		"hour": t.Hour(),
		"day":  t.YearDay(),
	}).Info("Starting scheduled retrain")

	if err := s.retrain(); err != nil {
		s.logger.WithError(err).Error("Scheduled retrain failed")
		return
	}

	s.lastRunDay = t.YearDay()
	s.logger.Info("Completed scheduled retrain")
}

// RunNow triggers a retrain immediately, serialized with any scheduled
// run.
func (s *Scheduler) RunNow() error {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	s.logger.Info("Starting on-demand retrain")
	return s.retrain()
}
