package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/poiesic/jobfeed/core"
	"github.com/urfave/cli/v2"
)

type seedFile struct {
	Candidates []seedCandidate `koanf:"candidates"`
	Profiles   []seedProfile   `koanf:"profiles"`
}

type seedCandidate struct {
	ID          string   `koanf:"id"`
	Title       string   `koanf:"title"`
	Company     string   `koanf:"company"`
	Description string   `koanf:"description"`
	Tags        []string `koanf:"tags"`
	Seniority   string   `koanf:"seniority"`
	Location    string   `koanf:"location"`
	Remote      bool     `koanf:"remote"`
	Inactive    bool     `koanf:"inactive"`
	CreatedAt   string   `koanf:"created_at"` // RFC 3339; empty means now
}

type seedProfile struct {
	ID                 string   `koanf:"id"`
	Headline           string   `koanf:"headline"`
	Skills             []string `koanf:"skills"`
	Seniority          string   `koanf:"seniority"`
	PreferredLocations []string `koanf:"preferred_locations"`
}

type seedSummary struct {
	Candidates []core.ID `json:"candidates"`
	Profiles   []core.ID `json:"profiles"`
}

func loadSeedFile(path string) (*seedFile, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load seed file %s: %w", path, err)
	}
	var seed seedFile
	if err := k.Unmarshal("", &seed); err != nil {
		return nil, fmt.Errorf("failed to decode seed file %s: %w", path, err)
	}
	return &seed, nil
}

func (s seedCandidate) candidate() (*core.Candidate, error) {
	c := &core.Candidate{
		Title:       s.Title,
		Company:     s.Company,
		Description: s.Description,
		Tags:        s.Tags,
		Seniority:   s.Seniority,
		Location:    s.Location,
		Remote:      s.Remote,
		Active:      !s.Inactive,
	}
	if s.ID != "" {
		id, err := uuid.Parse(s.ID)
		if err != nil {
			return nil, fmt.Errorf("candidate %q: invalid id: %w", s.Title, err)
		}
		c.Id = id
	}
	if s.CreatedAt != "" {
		at, err := time.Parse(time.RFC3339, s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("candidate %q: invalid created_at: %w", s.Title, err)
		}
		c.CreatedAt = at.UTC()
	}
	return c, nil
}

func (s seedProfile) profile() (*core.Profile, error) {
	p := &core.Profile{
		Id:                 core.NewID(),
		Headline:           s.Headline,
		Skills:             s.Skills,
		Seniority:          s.Seniority,
		PreferredLocations: s.PreferredLocations,
	}
	if s.ID != "" {
		id, err := uuid.Parse(s.ID)
		if err != nil {
			return nil, fmt.Errorf("profile %q: invalid id: %w", s.Headline, err)
		}
		p.Id = id
	}
	return p, nil
}

func seedCommand(c *cli.Context) error {
	seed, err := loadSeedFile(c.String("file"))
	if err != nil {
		return err
	}

	candidates := make([]*core.Candidate, 0, len(seed.Candidates))
	for _, sc := range seed.Candidates {
		candidate, err := sc.candidate()
		if err != nil {
			return err
		}
		candidates = append(candidates, candidate)
	}
	profiles := make([]*core.Profile, 0, len(seed.Profiles))
	for _, sp := range seed.Profiles {
		profile, err := sp.profile()
		if err != nil {
			return err
		}
		profiles = append(profiles, profile)
	}

	engine, err := openEngine(c.Context, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	summary := seedSummary{Candidates: []core.ID{}, Profiles: []core.ID{}}
	if len(candidates) > 0 {
		pipeline, err := engine.NewIngestionPipeline()
		if err != nil {
			return err
		}
		ids, err := pipeline.Ingest(c.Context, candidates, nil)
		// Release waits for the embedding batches already submitted.
		pipeline.Release()
		if err != nil {
			return fmt.Errorf("failed to ingest candidates: %w", err)
		}
		summary.Candidates = ids
	}
	if len(profiles) > 0 {
		if err := engine.Profiles().SaveProfiles(c.Context, profiles...); err != nil {
			return fmt.Errorf("failed to save profiles: %w", err)
		}
		for _, p := range profiles {
			summary.Profiles = append(summary.Profiles, p.Id)
		}
	}
	return printJSON(c, summary)
}
