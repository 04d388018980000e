package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pitchline/pitchline/internal/domain/match"
)

// Load generator defaults.
const (
	defaultLoadMatches = 100
	defaultLoadWorkers = 4
	defaultLoadTimeout = 60 * time.Second
)

var (
	loadBaseURL string
	loadMatches int
	loadWorkers int
	loadTimeout time.Duration
	loadAsync   bool
)

var loadgenCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Submit synthetic matches against a running service",
	Long: `Generates randomized rosters and submits them concurrently, then
reports throughput and the response breakdown. Useful for exercising the
admission backlog and the request throttle.`,
	RunE: runLoadgen,
}

func init() {
	loadgenCmd.Flags().StringVar(&loadBaseURL, "url", "http://localhost:9090", "Base URL of the service")
	loadgenCmd.Flags().IntVar(&loadMatches, "matches", defaultLoadMatches, "Number of matches to submit")
	loadgenCmd.Flags().IntVar(&loadWorkers, "workers", defaultLoadWorkers, "Number of concurrent submitters")
	loadgenCmd.Flags().DurationVar(&loadTimeout, "timeout", defaultLoadTimeout, "Per-request timeout")
	loadgenCmd.Flags().BoolVar(&loadAsync, "async", false, "Submit via /simulate-async instead of /simulate")
	rootCmd.AddCommand(loadgenCmd)
}

type loadReport struct {
	submitted int64
	accepted  int64
	throttled int64
	rejected  int64
	failed    int64
}

func runLoadgen(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client := &http.Client{Timeout: loadTimeout}

	path := "/simulate"
	if loadAsync {
		path = "/simulate-async"
	}
	target := loadBaseURL + path

	jobs := make(chan int)
	var report loadReport
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < loadWorkers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for range jobs {
				submitOne(ctx, client, target, rng, &report)
			}
		}(int64(w) + 1)
	}

	for i := 0; i < loadMatches; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("submitted %d matches in %s (%.1f/s)\n",
		report.submitted, elapsed.Round(time.Millisecond),
		float64(report.submitted)/elapsed.Seconds())
	fmt.Printf("  accepted:  %d\n", report.accepted)
	fmt.Printf("  throttled: %d\n", report.throttled)
	fmt.Printf("  rejected:  %d\n", report.rejected)
	fmt.Printf("  failed:    %d\n", report.failed)
	return nil
}

func submitOne(ctx context.Context, client *http.Client, target string, rng *rand.Rand, report *loadReport) {
	payload := syntheticPayload(rng)
	body, err := json.Marshal(payload)
	if err != nil {
		atomic.AddInt64(&report.failed, 1)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		atomic.AddInt64(&report.failed, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	atomic.AddInt64(&report.submitted, 1)
	resp, err := client.Do(req)
	if err != nil {
		atomic.AddInt64(&report.failed, 1)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		atomic.AddInt64(&report.accepted, 1)
	case resp.StatusCode == http.StatusTooManyRequests:
		atomic.AddInt64(&report.throttled, 1)
	case resp.StatusCode == http.StatusServiceUnavailable:
		atomic.AddInt64(&report.rejected, 1)
	default:
		atomic.AddInt64(&report.failed, 1)
	}
}

// syntheticPayload builds a random but valid simulation request.
func syntheticPayload(rng *rand.Rand) map[string]any {
	formations := []string{"4-4-2", "4-3-3", "3-5-2", "4-2-3-1", "5-3-2"}
	mentalities := []string{"defensive", "balanced", "attacking"}

	tactic := func() match.Tactic {
		return match.Tactic{
			Formation: formations[rng.Intn(len(formations))],
			Mentality: mentalities[rng.Intn(len(mentalities))],
			Pressing:  0.3 + rng.Float64()*0.5,
			Tempo:     0.3 + rng.Float64()*0.5,
			Width:     0.3 + rng.Float64()*0.5,
		}
	}

	return map[string]any{
		"job_id":      uuid.New().String(),
		"home_roster": syntheticRoster(rng, "home"),
		"away_roster": syntheticRoster(rng, "away"),
		"home_tactic": tactic(),
		"away_tactic": tactic(),
		"environment": match.Environment{Weather: "clear", Venue: "loadgen park"},
		"options": match.Options{
			Mode:             match.ModeBatch,
			EnableStatistics: true,
		},
	}
}

func syntheticRoster(rng *rand.Rand, team string) match.Roster {
	positions := []string{"GK", "RB", "CB", "CB", "LB", "CM", "CM", "CM", "RW", "ST", "LW", "CB", "CM", "ST"}
	players := make([]match.Player, 0, len(positions))
	for i, pos := range positions {
		players = append(players, match.Player{
			ID:       fmt.Sprintf("%s-%02d", team, i+1),
			Name:     fmt.Sprintf("%s player %d", team, i+1),
			Position: pos,
			Number:   i + 1,
			Ratings: match.Attributes{
				Speed:       50 + rng.Intn(40),
				Shooting:    40 + rng.Intn(50),
				Passing:     45 + rng.Intn(45),
				Defending:   40 + rng.Intn(50),
				Physicality: 50 + rng.Intn(40),
			},
			Stamina: 0.9 + rng.Float64()*0.1,
		})
	}
	return match.Roster{
		TeamID:  team,
		Name:    team,
		Players: players,
	}
}
