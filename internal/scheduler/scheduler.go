package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"air-quality-monitor/internal/airquality"
)

// Scheduler periodically re-fetches measurements for the configured cities
// so their cache entries stay warm.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *airquality.Service
	cities    []string
	interval  time.Duration
}

// New creates a new Scheduler.
func New(cities []string, interval time.Duration, service *airquality.Service) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		cities:    cities,
		interval:  interval,
	}
}

// Start schedules the refresh job and starts the underlying scheduler. The
// job goes through the regular cached fetch path, so it reaches the network
// only when a cache bucket has rolled over.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 || s.interval <= 0 {
		log.Println("scheduler: refresh disabled or no cities configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: refreshing air quality data")

		var wg sync.WaitGroup
		for _, city := range s.cities {
			city := city
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				_, err := s.service.Fetch(ctx, city)
				switch {
				case err == nil:
				case airquality.IsKind(err, airquality.KindEmptyResult):
					log.Printf("scheduler: no recent measurements for %s", city)
				default:
					log.Printf("scheduler: refresh failed for %s: %v", city, err)
				}
			}()
		}
		wg.Wait()
		log.Println("scheduler: refresh complete")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
