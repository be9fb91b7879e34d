package library

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Digital-Shane/youtube-metadata/internal/log"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/sirupsen/logrus"
)

// Report summarises one re-index pass.
type Report struct {
	Series   int
	Seasons  int
	Episodes int
	Updated  int
	Errors   []error
}

// Reindexer renumbers seasons and episodes of channel series by name.
type Reindexer struct {
	repo   Repository
	logger *logrus.Logger
}

// NewReindexer creates a re-indexer over repo.
func NewReindexer(repo Repository, logger *logrus.Logger) *Reindexer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reindexer{repo: repo, logger: logger}
}

// Run renumbers every series carrying the YoutubeMetadata provider id:
// seasons 1..N and their episodes 1..M, both in ascending name order, with
// each episode's parent index set to its season's index. Only changed items
// are persisted. A failed update is logged and recorded in the report and
// the pass continues. progress receives 0-100 after each series.
func (r *Reindexer) Run(ctx context.Context, progress func(float64)) (Report, error) {
	var report Report
	if progress == nil {
		progress = func(float64) {}
	}

	series, err := r.repo.Items(ctx, Query{Kind: KindSeries, ProviderID: metadata.ProviderName})
	if err != nil {
		return report, fmt.Errorf("list series: %w", err)
	}
	report.Series = len(series)
	progress(0)

	for i, s := range series {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := r.reindexSeries(ctx, s, &report); err != nil {
			return report, err
		}
		progress(float64(i+1) / float64(len(series)) * 100)
	}

	r.logger.WithFields(logrus.Fields{
		"series":   report.Series,
		"seasons":  report.Seasons,
		"episodes": report.Episodes,
		"updated":  report.Updated,
		"failed":   len(report.Errors),
	}).Info("library re-index complete")
	return report, nil
}

// reindexSeries numbers one series. Only cancellation is returned; every
// other failure is recorded in report.
func (r *Reindexer) reindexSeries(ctx context.Context, series Item, report *Report) error {
	seasons, err := r.repo.Items(ctx, Query{Kind: KindSeason, ParentID: series.ID})
	if err != nil {
		return r.recordFailure(ctx, report, series, fmt.Errorf("list seasons of %s: %w", series.Name, err))
	}
	SortByName(seasons)
	report.Seasons += len(seasons)

	for i, season := range seasons {
		if err := ctx.Err(); err != nil {
			return err
		}
		season.IndexNumber = i + 1
		if err := r.persist(ctx, report, seasons[i], season); err != nil {
			return err
		}

		episodes, err := r.repo.Items(ctx, Query{Kind: KindEpisode, AncestorID: season.ID})
		if err != nil {
			if err := r.recordFailure(ctx, report, season, fmt.Errorf("list episodes of %s: %w", season.Name, err)); err != nil {
				return err
			}
			continue
		}
		SortByName(episodes)
		report.Episodes += len(episodes)

		for j, episode := range episodes {
			if err := ctx.Err(); err != nil {
				return err
			}
			episode.IndexNumber = j + 1
			episode.ParentIndexNumber = season.IndexNumber
			if err := r.persist(ctx, report, episodes[j], episode); err != nil {
				return err
			}
		}
	}
	return nil
}

// persist writes updated when its numbering differs from current.
func (r *Reindexer) persist(ctx context.Context, report *Report, current, updated Item) error {
	if current.IndexNumber == updated.IndexNumber && current.ParentIndexNumber == updated.ParentIndexNumber {
		return nil
	}
	err := r.repo.UpdateItem(ctx, updated)
	log.LogReindex(updated.Path, describeChange(current, updated), err)
	if err != nil {
		return r.recordFailure(ctx, report, updated, fmt.Errorf("update %s: %w", updated.Name, err))
	}
	report.Updated++
	return nil
}

// recordFailure logs err and adds it to report. Cancellation is returned
// instead so the pass stops.
func (r *Reindexer) recordFailure(ctx context.Context, report *Report, item Item, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ctxErr
	}
	r.logger.WithError(err).WithFields(logrus.Fields{"item": item.ID, "path": item.Path}).Warn("re-index step failed, continuing")
	report.Errors = append(report.Errors, err)
	return nil
}

func describeChange(current, updated Item) string {
	if updated.Kind == KindEpisode {
		return fmt.Sprintf("S%dE%d -> S%dE%d", current.ParentIndexNumber, current.IndexNumber, updated.ParentIndexNumber, updated.IndexNumber)
	}
	return fmt.Sprintf("index %d -> %d", current.IndexNumber, updated.IndexNumber)
}

// SortByName orders items by name using byte-wise comparison. Empty names
// sort first; ties keep their input order.
func SortByName(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return strings.Compare(a.Name, b.Name)
	})
}
