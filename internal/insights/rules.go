package insights

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mfenderov/lifeadmin/internal/store"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

const (
	minVendorDocuments  = 3
	minSpendingBills    = 5
	spendingPeriodDays  = 90
	spendingExpiryDays  = 7
	upcomingWindowDays  = 90
	topVendorsInSummary = 5
)

// VendorPatterns records vendors that appear on three or more live documents.
func (g *Generator) VendorPatterns(ctx context.Context) (int, error) {
	items, err := g.store.FindItems(ctx, store.ItemQuery{HasVendor: true, OldestFirst: true})
	if err != nil {
		return 0, fmt.Errorf("failed to load vendor documents: %w", err)
	}

	created := 0
	for _, group := range groupByVendor(items) {
		if len(group.Items) < minVendorDocuments {
			continue
		}

		var amounts []string
		typeSet := make(map[string]bool)
		for _, item := range group.Items {
			if a := models.StringValue(item.Summary.ExtractedAmount); a != "" {
				amounts = append(amounts, a)
			}
			if t := models.StringValue(item.Summary.DocumentType); t != "" {
				typeSet[t] = true
			}
		}
		types := make([]string, 0, len(typeSet))
		for t := range typeSet {
			types = append(types, t)
		}
		sort.Strings(types)

		body := fmt.Sprintf("You have %d documents from %s. ", len(group.Items), group.Name)
		if len(types) > 0 {
			body += fmt.Sprintf("Document types: %s.", strings.Join(types, ", "))
		}

		ok, err := g.save(ctx, draft{
			Type:     models.InsightPattern,
			Key:      vendorKey(group.Key),
			Priority: models.PriorityLow,
			Title:    "Recurring vendor: " + group.Name,
			Body:     strings.TrimSpace(body),
			Action:   "View all documents from " + group.Name,
			Related:  ids(group.Items),
			Meta: &models.VendorPatternMetadata{
				Vendor:        group.Name,
				DocumentCount: len(group.Items),
				Amounts:       amounts,
				Types:         types,
			},
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// SpendingSummary summarizes bills, invoices and receipts from the last 90 days
// once at least five exist.
func (g *Generator) SpendingSummary(ctx context.Context) (int, error) {
	items, err := g.bills(ctx, spendingPeriodDays, false)
	if err != nil {
		return 0, err
	}
	if len(items) < minSpendingBills {
		return 0, nil
	}

	var top []models.VendorCount
	for _, group := range groupByVendor(items) {
		top = append(top, models.VendorCount{Vendor: group.Name, Count: len(group.Items)})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if len(top) > topVendorsInSummary {
		top = top[:topVendorsInSummary]
	}

	parts := make([]string, len(top))
	for i, v := range top {
		parts[i] = fmt.Sprintf("%s (%d)", v.Vendor, v.Count)
	}

	ok, err := g.save(ctx, draft{
		Type:     models.InsightSummary,
		Key:      fmt.Sprintf("spending:%dd", spendingPeriodDays),
		Priority: models.PriorityLow,
		Title:    fmt.Sprintf("Recent spending summary (last %d days)", spendingPeriodDays),
		Body:     fmt.Sprintf("You have %d receipts/invoices. Top vendors: %s", len(items), strings.Join(parts, ", ")),
		Action:   "View all receipts and invoices",
		Related:  ids(items),
		Meta: &models.SpendingSummaryMetadata{
			PeriodDays:    spendingPeriodDays,
			DocumentCount: len(items),
			TopVendors:    top,
		},
		Expires: expiresIn(g.store.Now(), spendingExpiryDays),
	})
	if err != nil || !ok {
		return 0, err
	}
	return 1, nil
}

// UpcomingDates flags documents whose extracted date falls within the next 90
// days. Priority rises as the date approaches; the insight expires on the date.
func (g *Generator) UpcomingDates(ctx context.Context) (int, error) {
	items, err := g.store.FindItems(ctx, store.ItemQuery{HasSummary: true, OldestFirst: true})
	if err != nil {
		return 0, fmt.Errorf("failed to load dated documents: %w", err)
	}

	now := g.store.Now()
	horizon := now.AddDate(0, 0, upcomingWindowDays)
	created := 0
	for _, item := range items {
		raw := models.StringValue(item.Summary.ExtractedDate)
		if raw == "" {
			continue
		}
		date, ok := ParseDate(raw)
		if !ok {
			slog.Debug("unparseable document date", "item", item.ID, "date", raw)
			continue
		}
		if !date.After(now) || !date.Before(horizon) {
			continue
		}

		days := int(date.Sub(now).Hours() / 24)
		vendor := vendorOf(item)
		if vendor == "" {
			vendor = "Unknown"
		}
		docType := models.StringValue(item.Summary.DocumentType)
		if docType == "" {
			docType = "Document"
		}

		inserted, err := g.save(ctx, draft{
			Type:     models.InsightRenewal,
			Key:      "item:" + item.ID,
			Priority: urgency(days),
			Title:    fmt.Sprintf("Upcoming date: %s - %s", vendor, raw),
			Body:     fmt.Sprintf("%s from %s has a date of %s (%d days from now).", docType, vendor, raw, days),
			Action:   "Review document",
			Related:  []string{item.ID},
			Meta: &models.UpcomingDateMetadata{
				ItemID:     item.ID,
				Vendor:     vendor,
				RawDate:    raw,
				ParsedDate: date,
				DaysUntil:  days,
			},
			Expires: &date,
		})
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

func urgency(days int) models.Priority {
	switch {
	case days <= 7:
		return models.PriorityHigh
	case days <= 30:
		return models.PriorityMedium
	}
	return models.PriorityLow
}
