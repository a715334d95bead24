package property

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/ai"
	"github.com/suPer8Hu/estate-chat/internal/common"
	"github.com/suPer8Hu/estate-chat/internal/platform/logger"
	"gorm.io/gorm"
)

const overviewInstruction = "You write short, factual overviews of residential property listings for home buyers in India. " +
	"Use only the facts given. Three to five sentences, no headings, no lists."

// Enricher generates the cached overview text for a listing.
type Enricher struct {
	repo     *Repository
	provider ai.Provider
}

func NewEnricher(repo *Repository, provider ai.Provider) *Enricher {
	return &Enricher{repo: repo, provider: provider}
}

// Overview returns the stored overview, generating and saving one first when
// the listing has none.
func (e *Enricher) Overview(ctx context.Context, id uint64) (string, error) {
	p, err := e.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(p.Overview) != "" {
		return p.Overview, nil
	}

	text, err := e.provider.Chat(ctx, []ai.Message{
		{Role: ai.RoleSystem, Content: overviewInstruction},
		{Role: ai.RoleUser, Content: Describe(*p)},
	})
	if err != nil {
		return "", fmt.Errorf("generate overview: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("generate overview: empty response")
	}
	if err := e.repo.PatchOverview(ctx, id, text); err != nil {
		return "", err
	}
	return text, nil
}

// Describe lists the facts of p, one per line.
func Describe(p Property) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	fmt.Fprintf(&b, "Location: %s\n", p.Location)
	fmt.Fprintf(&b, "Configuration: %s\n", p.BedroomRange())
	fmt.Fprintf(&b, "Price: %s\n", p.PriceRange())
	if p.AreaMax > 0 {
		fmt.Fprintf(&b, "Area: %.0f-%.0f sqft\n", p.AreaMin, p.AreaMax)
	}
	if p.Developer != "" {
		fmt.Fprintf(&b, "Developer: %s\n", p.Developer)
	}
	if p.PossessionDate != nil {
		fmt.Fprintf(&b, "Possession: %s\n", p.PossessionDate.Format("Jan 2006"))
	}
	if len(p.Amenities) > 0 {
		fmt.Fprintf(&b, "Amenities: %s\n", strings.Join(p.Amenities, ", "))
	}
	if d := strings.TrimSpace(p.Description); d != "" {
		fmt.Fprintf(&b, "Description: %s\n", d)
	}
	return b.String()
}

type Publisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

// OverviewJobs queues overview generation and runs it on the worker side.
type OverviewJobs struct {
	jobs     *JobRepo
	pub      Publisher
	enricher *Enricher
	log      *logger.Logger
}

func NewOverviewJobs(jobs *JobRepo, pub Publisher, enricher *Enricher, log *logger.Logger) *OverviewJobs {
	if log == nil {
		log = logger.Nop()
	}
	return &OverviewJobs{jobs: jobs, pub: pub, enricher: enricher, log: log}
}

func (s *OverviewJobs) Enqueue(ctx context.Context, owner string, propertyID uint64, idempotencyKey string) (*OverviewJob, bool, error) {
	id, err := common.NewULID()
	if err != nil {
		return nil, false, err
	}

	job := &OverviewJob{
		ID:         id,
		Owner:      owner,
		PropertyID: propertyID,
		Status:     JobQueued,
	}
	if k := strings.TrimSpace(idempotencyKey); k != "" {
		job.IdempotencyKey = &k
	}

	saved, created, err := s.jobs.CreateJobOrGetExisting(ctx, job)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return saved, false, nil
	}

	if err := s.pub.PublishJob(ctx, saved.ID); err != nil {
		_ = s.jobs.MarkJobFailed(ctx, saved.ID, "enqueue failed: "+err.Error())
		return nil, false, err
	}
	return saved, true, nil
}

func (s *OverviewJobs) Get(ctx context.Context, owner, jobID string) (*OverviewJob, error) {
	j, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if j.Owner != owner {
		return nil, ErrJobNotFound
	}
	return j, nil
}

var ErrJobNotFound = errors.New("job not found")

// Handle runs one queued job to completion. A returned error means the job
// was marked failed.
func (s *OverviewJobs) Handle(ctx context.Context, jobID string) error {
	start := time.Now()
	_ = s.jobs.MarkJobRunning(ctx, jobID)

	j, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	if _, err := s.enricher.Overview(ctx, j.PropertyID); err != nil {
		_ = s.jobs.MarkJobFailed(ctx, jobID, err.Error())
		s.log.Warn("overview job failed", "job_id", jobID, "property_id", j.PropertyID, "cost", time.Since(start), "err", err)
		return err
	}

	if err := s.jobs.MarkJobSucceeded(ctx, jobID); err != nil {
		return err
	}
	if total := time.Since(start); total > 2*time.Second {
		s.log.Info("overview job slow", "job_id", jobID, "total", total)
	}
	return nil
}
