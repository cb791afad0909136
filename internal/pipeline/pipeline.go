// Package pipeline orchestrates the periodic insight run: sweep, rule-based
// generators, summaries and categories, AI generators and category analysis.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfenderov/lifeadmin/internal/analyzer"
	"github.com/mfenderov/lifeadmin/internal/categorize"
	"github.com/mfenderov/lifeadmin/internal/insights"
	"github.com/mfenderov/lifeadmin/internal/llm"
	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/internal/summary"
)

// Report holds the outcome of a run. Counts are insights (or documents, for
// Summarized and Categorized) created during the run. A failed step leaves its
// count at zero and appends to Errors; earlier work is kept.
type Report struct {
	AIEnabled bool `json:"ai_enabled"`

	Expired   int64 `json:"expired"`
	Dismissed int64 `json:"dismissed_removed"`

	VendorPatterns  int `json:"vendor_patterns"`
	SpendingSummary int `json:"spending_summary"`
	UpcomingDates   int `json:"upcoming_dates"`

	Summarized  int `json:"summarized"`
	Categorized int `json:"categorized"`

	Anomalies       int `json:"anomalies"`
	Trends          int `json:"trends"`
	Relationships   int `json:"relationships"`
	Recommendations int `json:"recommendations"`

	Categories []analyzer.Result `json:"categories,omitempty"`

	// EstimatedTokens approximates what category analysis spent on the LLM.
	EstimatedTokens int `json:"estimated_tokens"`

	Duration time.Duration `json:"duration"`
	Errors   []error       `json:"-"`
}

// Created returns the number of insights created.
func (r *Report) Created() int {
	return r.VendorPatterns + r.SpendingSummary + r.UpcomingDates +
		r.Anomalies + r.Trends + r.Relationships + r.Recommendations +
		analyzer.Created(r.Categories)
}

// ErrorStrings renders Errors for JSON responses.
func (r *Report) ErrorStrings() []string {
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}

// Pipeline wires the generators to one store and one optional LLM.
type Pipeline struct {
	store       *store.Store
	summarizer  *summary.Summarizer
	categorizer *categorize.Categorizer
	generator   *insights.Generator
	analyzer    *analyzer.Analyzer
	aiEnabled   bool
}

// New creates a pipeline. A nil completer runs the rule-based steps only.
func New(s *store.Store, c llm.Completer) *Pipeline {
	return &Pipeline{
		store:       s,
		summarizer:  summary.New(s, c),
		categorizer: categorize.New(s, c),
		generator:   insights.New(s, c),
		analyzer:    analyzer.New(s, c),
		aiEnabled:   c != nil,
	}
}

// AIEnabled reports whether the AI steps run.
func (p *Pipeline) AIEnabled() bool {
	return p.aiEnabled
}

// Scope selects the steps of a run. Every scope sweeps first.
type Scope string

const (
	ScopeAll        Scope = "all"
	ScopeRules      Scope = "rules"
	ScopeAI         Scope = "ai"
	ScopeCategories Scope = "categories"
)

// ParseScope accepts "", "all", "rules", "ai" and "categories".
func ParseScope(raw string) (Scope, error) {
	switch scope := Scope(raw); scope {
	case "":
		return ScopeAll, nil
	case ScopeAll, ScopeRules, ScopeAI, ScopeCategories:
		return scope, nil
	}
	return "", fmt.Errorf("unknown scope %q: want all, rules, ai or categories", raw)
}

// Generate runs the steps in scope.
func (p *Pipeline) Generate(ctx context.Context, scope Scope) (*Report, error) {
	switch scope {
	case ScopeAll, "":
		return p.GenerateAll(ctx)
	case ScopeRules:
		return p.GenerateRuleInsights(ctx)
	case ScopeAI:
		return p.GenerateAIInsights(ctx)
	case ScopeCategories:
		return p.GenerateCategoryIntelligence(ctx)
	}
	return nil, fmt.Errorf("unknown scope %q", scope)
}

// GenerateAll runs every step in order. Step failures are collected in the
// report; only a cancelled context stops the run early.
func (p *Pipeline) GenerateAll(ctx context.Context) (*Report, error) {
	return p.run(ctx, ScopeAll, func(report *Report) {
		p.rules(ctx, report)
		if !p.aiEnabled {
			return
		}
		p.step(ctx, report, "summaries", p.summarizer.SummarizeMissing, &report.Summarized)
		p.step(ctx, report, "categories", p.categorizer.CategorizeAll, &report.Categorized)
		p.ai(ctx, report)
		p.categories(ctx, report)
	})
}

// GenerateRuleInsights sweeps, then runs the generators that need no LLM.
func (p *Pipeline) GenerateRuleInsights(ctx context.Context) (*Report, error) {
	return p.run(ctx, ScopeRules, func(report *Report) {
		p.rules(ctx, report)
	})
}

// GenerateAIInsights sweeps, then runs the LLM-backed generators.
func (p *Pipeline) GenerateAIInsights(ctx context.Context) (*Report, error) {
	if !p.aiEnabled {
		return nil, llm.ErrDisabled
	}
	return p.run(ctx, ScopeAI, func(report *Report) {
		p.ai(ctx, report)
	})
}

// GenerateCategoryIntelligence sweeps, then runs the category analyzers.
func (p *Pipeline) GenerateCategoryIntelligence(ctx context.Context) (*Report, error) {
	if !p.aiEnabled {
		return nil, llm.ErrDisabled
	}
	return p.run(ctx, ScopeCategories, func(report *Report) {
		p.categories(ctx, report)
	})
}

func (p *Pipeline) run(ctx context.Context, scope Scope, steps func(*Report)) (*Report, error) {
	start := time.Now()
	report := &Report{AIEnabled: p.aiEnabled}

	swept, err := p.store.SweepInsights(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("failed to sweep insights: %w", err))
	}
	report.Expired, report.Dismissed = swept.Expired, swept.Dismissed

	steps(report)

	report.EstimatedTokens = analyzer.EstimatedTokens(report.Categories)
	report.Duration = time.Since(start)
	slog.Info("insight generation finished",
		"scope", scope,
		"created", report.Created(),
		"estimated_tokens", report.EstimatedTokens,
		"errors", len(report.Errors),
		"duration", report.Duration)
	return report, ctx.Err()
}

func (p *Pipeline) rules(ctx context.Context, report *Report) {
	p.step(ctx, report, "vendor patterns", p.generator.VendorPatterns, &report.VendorPatterns)
	p.step(ctx, report, "spending summary", p.generator.SpendingSummary, &report.SpendingSummary)
	p.step(ctx, report, "upcoming dates", p.generator.UpcomingDates, &report.UpcomingDates)
}

func (p *Pipeline) ai(ctx context.Context, report *Report) {
	p.step(ctx, report, "anomalies", p.generator.Anomalies, &report.Anomalies)
	p.step(ctx, report, "trends", p.generator.Trends, &report.Trends)
	p.step(ctx, report, "relationships", p.generator.Relationships, &report.Relationships)
	p.step(ctx, report, "recommendations", p.generator.Recommendations, &report.Recommendations)
}

func (p *Pipeline) categories(ctx context.Context, report *Report) {
	if ctx.Err() != nil {
		return
	}
	report.Categories = p.analyzer.RunAll(ctx)
	for _, r := range report.Categories {
		if r.Err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("category %s: %w", r.Category, r.Err))
		}
	}
}

// step runs one generator, storing its count even when it fails part way.
func (p *Pipeline) step(ctx context.Context, report *Report, name string, run func(context.Context) (int, error), count *int) {
	if ctx.Err() != nil {
		return
	}
	n, err := run(ctx)
	*count = n
	if err != nil {
		slog.Warn("insight step failed", "step", name, "error", err)
		report.Errors = append(report.Errors, fmt.Errorf("%s: %w", name, err))
	}
}
