package service

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v2"
)

type seedEquipment struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Quantity int    `yaml:"quantity"`
	Notes    string `yaml:"notes"`
}

type seedJob struct {
	Title     string          `yaml:"title"`
	Client    string          `yaml:"client"`
	Date      string          `yaml:"date"`
	Equipment []seedEquipment `yaml:"equipment"`
}

type seedFile struct {
	Jobs []seedJob `yaml:"jobs"`
}

// Seed загружает стартовые работы из YAML, только если хранилище пустое.
// Возвращает количество созданных работ.
func (s *JobService) Seed(ctx context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read seed: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse seed: %w", err)
	}

	existing, err := s.ListJobs(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		s.logger.Info().Int("jobs", len(existing)).Msg("store not empty, skipping seed")
		return 0, nil
	}

	created := 0
	for i, sj := range file.Jobs {
		job, err := s.CreateJob(ctx, CreateJobInput{Title: sj.Title, Client: sj.Client, Date: sj.Date})
		if err != nil {
			return created, fmt.Errorf("seed job #%d: %w", i+1, err)
		}
		created++

		for _, se := range sj.Equipment {
			in := AddEquipmentInput{Name: se.Name, Category: se.Category, Quantity: se.Quantity}
			if se.Notes != "" {
				notes := se.Notes
				in.Notes = &notes
			}
			if _, err := s.AddEquipment(ctx, job.ID, in); err != nil {
				return created, fmt.Errorf("seed equipment for %q: %w", job.Title, err)
			}
		}
	}

	s.logger.Info().Int("jobs", created).Msg("seed loaded")
	return created, nil
}
